package ghclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	gh "github.com/google/go-github/v57/github"
)

// FieldError is one entry of the "errors" array in a GitHub error payload.
type FieldError struct {
	Resource string `json:"resource,omitempty"`
	Field    string `json:"field,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ErrorBody is the parsed error payload returned by the API on a non-2xx
// response.
type ErrorBody struct {
	Message          string       `json:"message"`
	DocumentationURL string       `json:"documentation_url,omitempty"`
	Errors           []FieldError `json:"errors,omitempty"`

	// Raw holds the response body as received, when it could be recovered.
	Raw json.RawMessage `json:"-"`
}

// SearchRequestFailed is returned when the search endpoint answers with a
// non-2xx status.
type SearchRequestFailed struct {
	URL        string
	StatusCode int
	Body       ErrorBody

	cause error
}

func (e *SearchRequestFailed) Error() string {
	return fmt.Sprintf("error in request %s: %d %s", e.URL, e.StatusCode, e.Body.Message)
}

// Unwrap exposes ErrRateLimited for quota failures.
func (e *SearchRequestFailed) Unwrap() error {
	return e.cause
}

// asSearchRequestFailed converts go-github's HTTP error types into a
// SearchRequestFailed. Other errors are returned unchanged.
func asSearchRequestFailed(err error) error {
	var (
		errResp   *gh.ErrorResponse
		rateErr   *gh.RateLimitError
		abuseErr  *gh.AbuseRateLimitError
		resp      *http.Response
		body      ErrorBody
		fieldErrs []FieldError
		cause     error
	)

	switch {
	case errors.As(err, &errResp):
		resp = errResp.Response
		for _, fe := range errResp.Errors {
			fieldErrs = append(fieldErrs, FieldError{
				Resource: fe.Resource,
				Field:    fe.Field,
				Code:     fe.Code,
				Message:  fe.Message,
			})
		}
		body = ErrorBody{
			Message:          errResp.Message,
			DocumentationURL: errResp.DocumentationURL,
			Errors:           fieldErrs,
		}
	case errors.As(err, &rateErr):
		resp = rateErr.Response
		body = ErrorBody{Message: rateErr.Message}
		cause = ErrRateLimited
	case errors.As(err, &abuseErr):
		resp = abuseErr.Response
		body = ErrorBody{Message: abuseErr.Message}
		cause = ErrRateLimited
	default:
		return err
	}

	failed := &SearchRequestFailed{Body: body, cause: cause}
	if resp != nil {
		failed.StatusCode = resp.StatusCode
		if resp.Request != nil && resp.Request.URL != nil {
			failed.URL = resp.Request.URL.String()
		}
		failed.Body.Raw = readRawBody(resp)
	}
	return failed
}

// readRawBody recovers the error payload; go-github re-populates the body
// after decoding it.
func readRawBody(resp *http.Response) json.RawMessage {
	if resp.Body == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 || !json.Valid(data) {
		return nil
	}
	return json.RawMessage(data)
}
