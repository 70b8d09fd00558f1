package oidcprovider

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-learner-session/identity"
	"golang.org/x/oauth2"
)

// classifyTokenError maps token endpoint failures (RFC 6749 section 5.2).
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return identity.Classify("", err)
	}

	message := retrieveErr.ErrorDescription
	if message == "" {
		message = retrieveErr.ErrorCode
	}
	switch retrieveErr.ErrorCode {
	case "invalid_grant":
		// Keycloak and friends report unverified accounts as a failed grant.
		lower := strings.ToLower(message)
		if strings.Contains(lower, "not verified") || strings.Contains(lower, "not fully set up") {
			return identity.NewError(identity.KindUnconfirmed, "", message, err)
		}
		return identity.NewError(identity.KindInvalidCredential, "", message, err)
	case "invalid_request", "invalid_scope":
		return identity.NewError(identity.KindValidation, "", message, err)
	}

	if retrieveErr.Response != nil {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return identity.NewError(identity.KindNetwork, "", "Network Error", err)
		case http.StatusUnauthorized:
			return identity.NewError(identity.KindInvalidCredential, "", message, err)
		}
	}
	if message == "" {
		message = retrieveErr.Error()
	}
	return identity.NewError(identity.KindUnknown, "", message, err)
}
