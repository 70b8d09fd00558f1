package kratosprovider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-learner-session/identity"
	kratos "github.com/ory/kratos-client-go"
)

// Kratos UI message ids the app distinguishes.
const (
	msgInvalidCredentials    = 4000006
	msgDuplicateIdentifier   = 4000007
	msgAddressNotVerified    = 4000010
	validationMessageIDFloor = 4000000
	validationMessageIDCeil  = 4000999
)

type uiText struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// errorBody covers both shapes Kratos answers failures with: a flow whose UI
// carries messages, or a generic error envelope.
type errorBody struct {
	UI *struct {
		Messages []uiText `json:"messages"`
		Nodes    []struct {
			Messages []uiText `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyKratosError transforms Kratos API errors to identity errors
func classifyKratosError(err error, httpResp *http.Response) error {
	var apiErr *kratos.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		if classified := classifyBody(apiErr.Body()); classified != nil {
			return classified
		}
	}
	if httpResp != nil {
		return classifyStatus(httpResp.StatusCode, err)
	}
	// No response at all: the request never made it.
	return identity.Classify("", err)
}

func classifyBody(body []byte) *identity.Error {
	if len(body) == 0 {
		return nil
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}

	if parsed.UI != nil {
		texts := append([]uiText(nil), parsed.UI.Messages...)
		for _, node := range parsed.UI.Nodes {
			texts = append(texts, node.Messages...)
		}
		for _, text := range texts {
			if text.Type != "" && text.Type != "error" {
				continue
			}
			return identity.NewError(kindForMessage(text.ID), "", text.Text, nil)
		}
	}

	if parsed.Error != nil {
		message := parsed.Error.Reason
		if message == "" {
			message = parsed.Error.Message
		}
		return classifyStatus(parsed.Error.Code, errors.New(message))
	}
	return nil
}

func kindForMessage(id int64) identity.Kind {
	switch {
	case id == msgInvalidCredentials:
		return identity.KindInvalidCredential
	case id == msgDuplicateIdentifier:
		return identity.KindConflict
	case id == msgAddressNotVerified:
		return identity.KindUnconfirmed
	case id >= validationMessageIDFloor && id <= validationMessageIDCeil:
		return identity.KindValidation
	}
	return identity.KindUnknown
}

func classifyStatus(status int, err error) *identity.Error {
	message := fmt.Sprintf("Kratos returned status %d", status)
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return identity.NewError(identity.KindValidation, "", message, err)
	case status == http.StatusConflict:
		return identity.NewError(identity.KindConflict, "", message, err)
	case status == http.StatusUnauthorized:
		return identity.NewError(identity.KindInvalidCredential, "", message, err)
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return identity.NewError(identity.KindNetwork, "", message, err)
	}
	return identity.NewError(identity.KindUnknown, "", message, err)
}
