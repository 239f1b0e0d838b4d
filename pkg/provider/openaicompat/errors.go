package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/vermittler/pkg/api"
)

// mapHTTPError converts a non-2xx response into a transport error carrying
// the vendor's error code where the body yields one, or the HTTP status
// otherwise. Provider failures end the conversation; the caller emits the
// resulting error as the single terminal error event.
func mapHTTPError(resp *http.Response) *api.APIError {
	code, message := extractError(resp.Body)
	if code == "" {
		code = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	if message == "" {
		message = fmt.Sprintf("backend returned HTTP %d", resp.StatusCode)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return api.NewInvalidRequestError("", message)
	}
	return api.NewTransportError(code, message)
}

// mapNetworkError converts a network-level failure (connection refused,
// timeout, DNS) into a transport error.
func mapNetworkError(err error) *api.APIError {
	return api.NewTransportError("connection_error",
		fmt.Sprintf("backend connection error: %s", err.Error()))
}

// extractError parses the response body as a Chat Completions error
// envelope, returning the vendor code and message when present.
func extractError(body io.Reader) (code, message string) {
	if body == nil {
		return "", ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "", ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return "", ""
	}

	switch c := errResp.Error.Code.(type) {
	case string:
		code = c
	case float64:
		code = fmt.Sprintf("%d", int(c))
	}
	if code == "" {
		code = errResp.Error.Type
	}
	return code, errResp.Error.Message
}
