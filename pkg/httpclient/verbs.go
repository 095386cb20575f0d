package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Get fetches path and decodes the payload into T.
func Get[T any](ctx context.Context, c *Client, path string) (T, error) {
	return call[T](ctx, c, http.MethodGet, path, nil, ContextGet)
}

// Post sends body as JSON to path and decodes the payload into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return call[T](ctx, c, http.MethodPost, path, body, ContextPost)
}

// Put sends body as JSON to path and decodes the payload into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return call[T](ctx, c, http.MethodPut, path, body, ContextPut)
}

// Delete removes the resource at path and decodes the payload into T.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	return call[T](ctx, c, http.MethodDelete, path, nil, ContextDelete)
}

func call[T any](ctx context.Context, c *Client, method, path string, body any, errContext string) (T, error) {
	var zero T
	res, err := c.Do(ctx, method, path, body, errContext)
	if err != nil {
		return zero, err
	}
	return Decode[T](res)
}

// Decode turns a Result into T.
//
// A 204 yields an empty object of T. A non-JSON success is handed over as-is when T
// is *Response, []byte or string; any other T gets a ParseError.
func Decode[T any](res Result) (T, error) {
	var out T
	switch res.Kind {
	case KindError:
		return out, res.Err
	case KindEmpty:
		if err := json.Unmarshal([]byte("{}"), &out); err != nil {
			var zero T
			return zero, nil
		}
		return out, nil
	case KindJSON:
		if err := json.Unmarshal(res.Payload, &out); err != nil {
			var zero T
			return zero, &ParseError{Err: err}
		}
		return out, nil
	case KindRaw:
		switch dst := any(&out).(type) {
		case **Response:
			*dst = res.Raw
		case *[]byte:
			*dst = res.Raw.Body
		case *string:
			*dst = string(res.Raw.Body)
		case *any:
			*dst = res.Raw
		default:
			return out, &ParseError{Err: fmt.Errorf("unexpected content type %q", res.Raw.Header.Get("Content-Type"))}
		}
		return out, nil
	default:
		return out, &ParseError{Err: fmt.Errorf("unknown result kind %d", res.Kind)}
	}
}
