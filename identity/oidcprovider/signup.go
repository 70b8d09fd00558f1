package oidcprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/go-learner-session/identity"
	"github.com/jrsteele09/go-learner-session/internal/errors"
)

type signUpRequest struct {
	Email      string            `json:"email"`
	Password   string            `json:"password"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type signUpResponse struct {
	UserID               string `json:"user_id"`
	ConfirmationRequired bool   `json:"confirmation_required"`
}

type signUpFailure struct {
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// SignUp posts the registration to the configured sign-up endpoint. The
// password grant has no registration counterpart in OIDC itself.
func (p *Provider) SignUp(ctx context.Context, email, password string, attributes map[string]string) (identity.SignUpReceipt, error) {
	if p.signUpURL == "" {
		return identity.SignUpReceipt{}, identity.NewError(identity.KindUnknown, "", "sign up is not available", errors.ErrUnsupported)
	}

	payload, err := json.Marshal(signUpRequest{Email: email, Password: password, Attributes: attributes})
	if err != nil {
		return identity.SignUpReceipt{}, errors.Wrapf(err, "[oidcprovider.SignUp] encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.signUpURL, bytes.NewReader(payload))
	if err != nil {
		return identity.SignUpReceipt{}, errors.Wrapf(err, "[oidcprovider.SignUp] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return identity.SignUpReceipt{}, identity.Classify("", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return identity.SignUpReceipt{}, identity.Classify("", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return identity.SignUpReceipt{}, classifySignUpFailure(resp.StatusCode, body)
	}

	var receipt signUpResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &receipt); err != nil {
			return identity.SignUpReceipt{}, identity.NewError(identity.KindUnknown, "", "unreadable sign up response", err)
		}
	}
	return identity.SignUpReceipt{
		UserID:               receipt.UserID,
		ConfirmationRequired: receipt.ConfirmationRequired,
	}, nil
}

func classifySignUpFailure(status int, body []byte) *identity.Error {
	var failure signUpFailure
	_ = json.Unmarshal(body, &failure)
	message := failure.Message
	if message == "" {
		message = failure.ErrorDescription
	}
	if message == "" {
		message = http.StatusText(status)
	}

	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return identity.NewError(identity.KindValidation, "", message, nil)
	case http.StatusConflict:
		return identity.NewError(identity.KindConflict, "", message, nil)
	case http.StatusForbidden:
		return identity.NewError(identity.KindUnconfirmed, "", message, nil)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return identity.NewError(identity.KindNetwork, "", "Network Error", nil)
	}
	return identity.NewError(identity.KindUnknown, "", message, nil)
}
