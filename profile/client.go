// Package profile is the client for the downstream learner profile API.
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-learner-session/authenticator"
	"github.com/jrsteele09/go-learner-session/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// URL template placeholders.
const (
	PlaceholderTenant = "<tenant>"
	PlaceholderEmail  = "<user_email>"
	PlaceholderAlias  = "<user_alias>"
)

const maxBodySize = 1 << 20

// Record is a profile as returned by the API. Its fields are owned by the
// profile service.
type Record map[string]any

// APIError is a non-2xx answer from the profile API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("profile api returned status %d: %s", e.StatusCode, e.Body)
}

type aliasResponse struct {
	UniqueAliasID string `json:"UniqueAliasId"`
}

// Client calls the alias and profile endpoints. Its HTTP client is expected
// to send through an authenticator.Transport.
type Client struct {
	httpClient *http.Client
	tenant     string
	aliasURL   string
	profileURL string
	lookups    singleflight.Group
}

func NewClient(httpClient *http.Client, tenant, aliasURL, profileURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		tenant:     tenant,
		aliasURL:   aliasURL,
		profileURL: profileURL,
	}
}

// ResolveAliasID looks up the alias the profile service knows email by.
// Concurrent lookups for the same email share one request.
func (c *Client) ResolveAliasID(ctx context.Context, email string) (string, error) {
	email = utils.NormaliseEmail(email)
	if email == "" {
		return "", errors.New("[profile.ResolveAliasID] email is required")
	}

	aliasID, err, shared := c.lookups.Do(email, func() (interface{}, error) {
		target := strings.NewReplacer(
			PlaceholderTenant, url.PathEscape(c.tenant),
			PlaceholderEmail, url.QueryEscape(email),
		).Replace(c.aliasURL)

		var resp aliasResponse
		if err := c.do(ctx, http.MethodGet, target, nil, &resp); err != nil {
			return "", err
		}
		if resp.UniqueAliasID == "" {
			return "", errors.New("alias response has no UniqueAliasId")
		}
		return resp.UniqueAliasID, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[profile.ResolveAliasID]")
	}
	log.Debug().Bool("shared", shared).Msg("profile: alias resolved")
	return aliasID.(string), nil
}

// GetProfile fetches the profile of the user with aliasID. The alias is
// sent explicitly rather than read from the credential store.
func (c *Client) GetProfile(ctx context.Context, email, aliasID string) (Record, error) {
	if aliasID == "" {
		return nil, errors.New("[profile.GetProfile] alias id is required")
	}
	target := strings.NewReplacer(
		PlaceholderTenant, url.PathEscape(c.tenant),
		PlaceholderAlias, url.PathEscape(aliasID),
	).Replace(c.profileURL)

	body := map[string]string{"email": email}
	var record Record
	if err := c.do(authenticator.WithAliasID(ctx, aliasID), http.MethodPost, target, body, &record); err != nil {
		return nil, errors.Wrap(err, "[profile.GetProfile]")
	}
	return record, nil
}

func (c *Client) do(ctx context.Context, method, target string, payload any, out any) error {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(body, out), "decode response")
}
