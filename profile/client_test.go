package profile_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-learner-session/authenticator"
	"github.com/jrsteele09/go-learner-session/profile"
	"github.com/stretchr/testify/require"
)

func newClient(server *httptest.Server) *profile.Client {
	transport := authenticator.New(nil, authenticator.WithTenant("learner", "key-1"))
	return profile.NewClient(transport.Client(), "learner",
		server.URL+"/<tenant>/alias?email=<user_email>",
		server.URL+"/<tenant>/users/<user_alias>/profile",
	)
}

func TestResolveAliasID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/learner/alias", r.URL.Path)
		require.Equal(t, "a@x.com", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"UniqueAliasId":"alias-1"}`))
	}))
	defer server.Close()

	aliasID, err := newClient(server).ResolveAliasID(context.Background(), " A@x.com ")
	require.NoError(t, err)
	require.Equal(t, "alias-1", aliasID)
}

func TestResolveAliasID_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"message":"unknown user"}`,
			checkFn: func(t *testing.T, err error) {
				var apiErr *profile.APIError
				require.True(t, errors.As(err, &apiErr))
				require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
				require.Contains(t, apiErr.Body, "unknown user")
			},
		},
		{
			name:   "missing alias field",
			status: http.StatusOK,
			body:   `{}`,
			checkFn: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "UniqueAliasId")
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `not json`,
			checkFn: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "decode response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newClient(server).ResolveAliasID(context.Background(), "a@x.com")
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestResolveAliasID_SharesConcurrentLookups(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"UniqueAliasId":"alias-1"}`))
	}))
	defer server.Close()

	client := newClient(server)
	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			aliasID, err := client.ResolveAliasID(context.Background(), "a@x.com")
			require.NoError(t, err)
			results[i] = aliasID
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, aliasID := range results {
		require.Equal(t, "alias-1", aliasID)
	}
}

func TestGetProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/learner/users/alias-1/profile", r.URL.Path)
		require.Equal(t, "alias-1", r.Header.Get(authenticator.HeaderAlias))
		require.Equal(t, "learner", r.Header.Get(authenticator.HeaderTenant))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a@x.com", body["email"])

		_, _ = w.Write([]byte(`{"name":"Emma","interests":["Web Dev"]}`))
	}))
	defer server.Close()

	record, err := newClient(server).GetProfile(context.Background(), "a@x.com", "alias-1")
	require.NoError(t, err)
	require.Equal(t, "Emma", record["name"])
}

func TestGetProfile_RequiresAlias(t *testing.T) {
	client := profile.NewClient(nil, "learner", "", "")
	_, err := client.GetProfile(context.Background(), "a@x.com", "")
	require.Error(t, err)
}
