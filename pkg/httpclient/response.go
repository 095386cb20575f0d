package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Response is the raw handle of a success response that did not declare JSON.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// ResultKind tags the outcome of a single exchange.
type ResultKind int

const (
	// KindEmpty is a 204 No Content success.
	KindEmpty ResultKind = iota
	// KindJSON is a success with a JSON payload.
	KindJSON
	// KindRaw is a success with a non-JSON payload.
	KindRaw
	// KindError is a non-2xx response.
	KindError
)

func (k ResultKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindJSON:
		return "json"
	case KindRaw:
		return "raw"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the parsed outcome of one request. Exactly one of Payload, Raw or Err
// is meaningful, selected by Kind.
type Result struct {
	Kind    ResultKind
	Payload []byte
	Raw     *Response
	Err     *APIError
}

// normalize maps a resty response onto a Result. errContext prefixes failure messages.
func normalize(resp *resty.Response, errContext string) Result {
	status := resp.StatusCode()
	statusText := statusTextOf(resp)

	if !resp.IsSuccess() {
		return Result{Kind: KindError, Err: newAPIError(resp, errContext, status, statusText)}
	}

	if status == http.StatusNoContent {
		return Result{Kind: KindEmpty}
	}

	if isJSON(resp.Header().Get("Content-Type")) {
		return Result{Kind: KindJSON, Payload: resp.Body()}
	}

	return Result{Kind: KindRaw, Raw: &Response{
		StatusCode: status,
		Status:     statusText,
		Header:     resp.Header().Clone(),
		Body:       resp.Body(),
	}}
}

func newAPIError(resp *resty.Response, errContext string, status int, statusText string) *APIError {
	detail := statusText
	if hasErrorBody(resp) {
		if d, ok := errorDetail(resp.Body()); ok {
			detail = d
		}
	}

	return &APIError{
		Message: fmt.Sprintf("%s (%d: %s)", errContext, status, detail),
		Status:  status,
		Info:    errorInfo(status, statusText),
	}
}

// hasErrorBody reports whether a failure response declares a non-empty body.
func hasErrorBody(resp *resty.Response) bool {
	if resp.StatusCode() == http.StatusNoContent {
		return false
	}
	if cl := strings.TrimSpace(resp.Header().Get("Content-Length")); cl != "" {
		return cl != "0"
	}
	// Chunked and transparently decompressed bodies arrive without Content-Length.
	return len(resp.Body()) > 0
}

// errorDetail extracts the message of a JSON error body. ok is false when the body is not JSON.
func errorDetail(body []byte) (string, bool) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}

	if obj, isObj := parsed.(map[string]any); isObj {
		switch msg := obj["message"].(type) {
		case string:
			if msg != "" {
				return msg, true
			}
		case bool:
			if msg {
				return "true", true
			}
		case float64:
			// Zero counts as no message, like an empty string.
			if msg != 0 {
				return strconv.FormatFloat(msg, 'f', -1, 64), true
			}
		case nil:
		default:
			if out, err := json.Marshal(msg); err == nil {
				return string(out), true
			}
		}
	}

	out, err := json.Marshal(parsed)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func errorInfo(status int, statusText string) string {
	info, err := json.MarshalIndent(struct {
		Status     int    `json:"status"`
		StatusText string `json:"statusText"`
	}{status, statusText}, "", "  ")
	if err != nil {
		return ""
	}
	return string(info)
}

// statusTextOf returns the reason phrase, e.g. "Bad Request" for "400 Bad Request".
func statusTextOf(resp *resty.Response) string {
	code := resp.StatusCode()
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status(), strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return text
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
