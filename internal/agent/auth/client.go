// Package auth talks to the REST user store on behalf of the phone app.
package auth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUserExists is returned by Register when the username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrNotConfigured is returned when no backend URL is set.
	ErrNotConfigured = errors.New("user store not configured")
)

const usersPath = "/rest/v1/users"

// HashPassword is the only form in which a password leaves the device.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// User is a row of the users table.
type User struct {
	ID           any    `json:"id,omitempty"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
	DeviceID     string `json:"device_id,omitempty"`
	DeviceSerial string `json:"device_serial,omitempty"`
	LoginMethod  string `json:"login_method,omitempty"`
	IsActive     *bool  `json:"is_active,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Client is a minimal PostgREST-style client for the users table.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Authenticate reports whether an active user matches username and passwordHash.
func (c *Client) Authenticate(ctx context.Context, username, passwordHash string) (bool, error) {
	q := url.Values{}
	q.Set("username", "eq."+username)
	q.Set("password_hash", "eq."+passwordHash)
	q.Set("select", "id,username,email,is_active")

	users, err := c.query(ctx, q)
	if err != nil {
		return false, err
	}
	if len(users) == 0 {
		return false, nil
	}
	return users[0].IsActive == nil || *users[0].IsActive, nil
}

// Register creates u unless the username exists. DeviceID, LoginMethod,
// IsActive and the timestamps are filled in here.
func (c *Client) Register(ctx context.Context, u User) error {
	q := url.Values{}
	q.Set("username", "eq."+u.Username)
	q.Set("select", "id")

	// A failed existence check falls through to the insert, which the store
	// rejects on its own if the name is taken.
	if users, err := c.query(ctx, q); err == nil && len(users) > 0 {
		return ErrUserExists
	}

	active := true
	now := c.now().UTC().Format(time.RFC3339Nano)
	u.LoginMethod = "ble"
	u.IsActive = &active
	u.CreatedAt = now
	u.UpdatedAt = now

	body, err := json.Marshal(u)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("create user: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (c *Client) query(ctx context.Context, q url.Values) ([]User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query users: unexpected status %s", resp.Status)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (c *Client) newRequest(ctx context.Context, method string, q url.Values, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	u := c.baseURL + usersPath
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
