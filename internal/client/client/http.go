// Package client is the HTTP client the CLI uses to talk to the account API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

// ErrUnavailable is returned when the server cannot be reached.
var ErrUnavailable = errors.New("server unavailable")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Code    int
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return e.Status + ": " + e.Message
}

// Is lets callers match API errors against the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case http.StatusUnauthorized:
		return target == common.ErrInvalidCredentials || target == common.ErrInvalidToken
	case http.StatusConflict:
		return target == common.ErrExists
	case http.StatusNotFound:
		return target == common.ErrNotFound
	}
	return false
}

// User is the public user representation returned by the API.
type User struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Register(ctx context.Context, login, email string, password []byte) (*User, error) {
	body := map[string]string{"login": login, "email": email, "password": string(password)}
	var u User
	if err := c.do(ctx, http.MethodPost, "/api/user/register", "", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates by login or, when identity contains "@", by email.
func (c *HTTPClient) Login(ctx context.Context, identity string, password []byte) (string, *User, error) {
	body := map[string]string{"password": string(password)}
	if strings.Contains(identity, "@") {
		body["email"] = identity
	} else {
		body["login"] = identity
	}

	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/user/login", "", body, &resp); err != nil {
		return "", nil, err
	}
	return resp.Token, &resp.User, nil
}

func (c *HTTPClient) Current(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/user/current", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout asks the server to expire the session cookie. Bearer tokens stay
// valid until they expire, so callers should also forget the token.
func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/user/logout", "", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Code: resp.StatusCode, Status: resp.Status}
		var envelope struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Message = envelope.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
