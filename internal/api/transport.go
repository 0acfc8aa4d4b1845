package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/notesync/internal/shared"
)

// Credentials authenticates one account against its server. Either an app
// password (HTTP basic auth) or a bearer token may be set; the token wins if
// both are present.
type Credentials struct {
	UserName    string `json:"user_name"`
	AppPassword string `json:"app_password,omitempty"`
	BearerToken string `json:"bearer_token,omitempty"`
}

// Transport issues authenticated requests against one account's server and
// applies the per-call timeout. It owns no retry logic: a timeout surfaces as
// a retryable error and the next cycle tries again.
type Transport struct {
	baseURL string
	creds   Credentials
	client  *http.Client
	timeout time.Duration
}

func NewTransport(baseURL string, creds Credentials, timeout time.Duration) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{},
		timeout: timeout,
	}, nil
}

// Do issues one request. The body, if non-nil, is marshalled to JSON. The
// caller owns the response and must close its body.
func (t *Transport) Do(ctx context.Context, method, path string, query url.Values, header http.Header, body any) (*http.Response, error) {

	if err := t.checkToken(); err != nil {
		return nil, err
	}

	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshalling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		cancel()
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if t.creds.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.creds.BearerToken)
	} else {
		req.SetBasicAuth(t.creds.UserName, t.creds.AppPassword)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	// release the timeout once the body is fully consumed
	resp.Body = &cancelReadCloser{rc: resp.Body, cancel: cancel}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %w", method, path, shared.ErrUnauthorized)
	}

	return resp, nil
}

// checkToken fails fast when the configured bearer token is already expired,
// so a cycle does not burn a network round trip on a guaranteed 401. The
// token is not verified here; the server does that.
func (t *Transport) checkToken() error {
	if t.creds.BearerToken == "" {
		return nil
	}
	token, _, err := jwt.NewParser().ParseUnverified(t.creds.BearerToken, jwt.MapClaims{})
	if err != nil {
		// not a JWT; let the server decide
		return nil
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return fmt.Errorf("bearer token expired at %s: %w", exp.Format(time.RFC3339), shared.ErrUnauthorized)
	}
	return nil
}

type cancelReadCloser struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.rc.Close()
}
