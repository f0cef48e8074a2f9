package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// ProviderError describes a non-2xx answer from an external provider.
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned %d (%s): %s", e.Provider, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Message)
}

// Unwrap lets errors.Is classify throttling and upstream outages as retryable.
func (e *ProviderError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests || e.Status >= 500 {
		return apperrors.ErrServiceUnavail
	}
	return nil
}

// providerErrorBody accepts both the OAuth 2.0 error shape
// ({"error":"invalid_grant","error_description":"..."}) and the nested shape
// used by JSON APIs ({"error":{"message":"...","type":"...","code":"..."}}).
type providerErrorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

type nestedError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// ParseResponseError reads and closes the body of a non-2xx response and
// returns a *ProviderError. The caller should only invoke it for error statuses.
func ParseResponseError(resp *http.Response, provider string) error {
	defer func() { _ = resp.Body.Close() }()

	perr := &ProviderError{Provider: provider, Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		perr.Message = fmt.Sprintf("failed to read body: %v", err)
		return perr
	}

	var body providerErrorBody
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var code string
		if json.Unmarshal(body.Error, &code) == nil {
			perr.Code = code
			perr.Message = body.ErrorDescription
			return perr
		}
		var nested nestedError
		if json.Unmarshal(body.Error, &nested) == nil {
			perr.Code = nested.Code
			if perr.Code == "" {
				perr.Code = nested.Type
			}
			perr.Message = nested.Message
			return perr
		}
	}

	perr.Message = string(raw)
	return perr
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
