package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/selfeval/selfeval/internal/auth"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// rest performs JSON requests against the backend and maps failures onto
// the package's error types.
type rest struct {
	baseURL string
	http    *http.Client
}

func newRest(baseURL string, hc *http.Client) (rest, error) {
	if baseURL == "" {
		return rest{}, errors.New("backend base URL is required")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return rest{baseURL: strings.TrimRight(baseURL, "/"), http: hc}, nil
}

// do sends in (when non-nil) as the JSON body and decodes a successful
// response into out (when non-nil) after validating it against schema.
func (r rest) do(ctx context.Context, op, method, path string, in, out any, schema string) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	id := RequestIDFrom(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, id)

	resp, err := r.http.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &ErrUnavailable{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if err := statusError(op, resp, raw); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(op, schema, raw, out)
}

func transportError(op string, err error) error {
	if errors.Is(err, auth.ErrNotLoggedIn) || errors.Is(err, auth.ErrSessionExpired) {
		return &ErrUnauthorized{Op: op, Err: err}
	}
	return &ErrUnavailable{Op: op, Err: err}
}

func statusError(op string, resp *http.Response, raw []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &ErrUnauthorized{Op: op, Status: code}
	case code == http.StatusTooManyRequests:
		return &ErrUnavailable{
			Op:         op,
			Status:     code,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New(serverMessage(raw, "rate limited")),
		}
	case code >= 400 && code < 500:
		return &ErrRejected{Op: op, Status: code, Message: serverMessage(raw, "")}
	default:
		return &ErrUnavailable{Op: op, Status: code, Err: errors.New(serverMessage(raw, http.StatusText(code)))}
	}
}

// serverMessage extracts the human message from an error body of the form
// {"message": "..."}, {"message": ["...", "..."]} or {"error": "..."}.
func serverMessage(raw []byte, fallback string) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallback
	}
	if len(body.Message) > 0 {
		var s string
		if json.Unmarshal(body.Message, &s) == nil && s != "" {
			return s
		}
		var list []string
		if json.Unmarshal(body.Message, &list) == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	if body.Error != "" {
		return body.Error
	}
	return fallback
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func decode(op, schema string, raw []byte, out any) error {
	if err := validateSchema(schema, raw); err != nil {
		return &ErrInvalidResponse{Op: op, Body: raw, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ErrInvalidResponse{Op: op, Body: raw, Err: fmt.Errorf("decode: %w", err)}
	}
	if err := checkPayload(out); err != nil {
		return &ErrInvalidResponse{Op: op, Body: raw, Err: err}
	}
	return nil
}
