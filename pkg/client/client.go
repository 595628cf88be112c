// Package client is a Go SDK for the ruang API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/titikruang/ruang/internal/domain"
	"github.com/titikruang/ruang/internal/identity"
)

type (
	Group   = domain.Group
	Message = domain.Message
	Scope   = domain.Scope
)

// Credentials let a device resume its anonymous identity later.
type Credentials struct {
	Identity     uuid.UUID `json:"identity"`
	AccessToken  string    `json:"access_token"`
	DeviceSecret string    `json:"device_secret,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Me struct {
	Identity    uuid.UUID `json:"identity"`
	DisplayName string    `json:"display_name"`
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCredentials starts the client with a previously issued token.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	creds Credentials
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns an identity session that signs in through this client.
func (c *Client) Session() *identity.Session {
	return identity.NewSession(c)
}

// Credentials returns the current token and device secret.
func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// SignInAnonymously requests a fresh anonymous identity and keeps its token
// for later calls.
func (c *Client) SignInAnonymously(ctx context.Context) (uuid.UUID, error) {
	var creds Credentials
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/anonymous", nil, &creds); err != nil {
		return uuid.Nil, providerError(err)
	}

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return creds.Identity, nil
}

// Resume exchanges a stored device secret for a new token.
func (c *Client) Resume(ctx context.Context, id uuid.UUID, deviceSecret string) error {
	var creds Credentials
	body := map[string]any{"identity": id, "device_secret": deviceSecret}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/resume", body, &creds); err != nil {
		return providerError(err)
	}
	creds.DeviceSecret = deviceSecret

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return nil
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) CreateGroup(ctx context.Context, name string) (*Group, error) {
	var g Group
	if err := c.do(ctx, http.MethodPost, "/api/v1/groups", map[string]string{"name": name}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// MyGroups lists the groups the signed-in identity belongs to.
func (c *Client) MyGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/api/v1/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Directory lists every group, newest first.
func (c *Client) Directory(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := c.do(ctx, http.MethodGet, "/api/v1/groups/directory", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) Group(ctx context.Context, id uuid.UUID) (*Group, error) {
	var g Group
	if err := c.do(ctx, http.MethodGet, "/api/v1/groups/"+id.String(), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) AddMember(ctx context.Context, groupID, target uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/v1/groups/"+groupID.String()+"/members", map[string]any{"user_id": target}, nil)
}

func (c *Client) RemoveMember(ctx context.Context, groupID, target uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/groups/"+groupID.String()+"/members/"+target.String(), nil, nil)
}

type SendInput struct {
	Text string `json:"text"`
	// SenderName defaults to the identity's display name when empty.
	SenderName string  `json:"sender_name,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
}

func (c *Client) Send(ctx context.Context, scope Scope, input SendInput) (*Message, error) {
	path, err := messagesPath(scope)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := c.do(ctx, http.MethodPost, path, input, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) Messages(ctx context.Context, scope Scope) ([]Message, error) {
	path, err := messagesPath(scope)
	if err != nil {
		return nil, err
	}

	var messages []Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) ToggleReaction(ctx context.Context, scope Scope, messageID uuid.UUID, emoji string) (*Message, error) {
	path, err := messagesPath(scope)
	if err != nil {
		return nil, err
	}

	var msg Message
	path += "/" + messageID.String() + "/reactions"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"emoji": emoji}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func messagesPath(scope Scope) (string, error) {
	switch scope.Kind {
	case domain.ScopeGroup:
		return "/api/v1/groups/" + url.PathEscape(scope.ID) + "/messages", nil
	case domain.ScopeChannel:
		return "/api/v1/channels/" + url.PathEscape(scope.ID) + "/messages", nil
	}
	return "", fmt.Errorf("unknown scope kind %q", scope.Kind)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
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
	if token := c.Credentials().AccessToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// providerError marks transport failures of the sign-in calls as the
// provider being unavailable. API errors keep their own kind.
func providerError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}
