// Package threads is the client for the Threads Graph API: publishing
// (single text posts and container-then-publish media sequences) plus the
// OAuth token exchanges. Every call goes through the retrying transport.
package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	"github.com/ymzk/threadpilot/pkg/httpretry"
)

const (
	defaultTimeout = 30 * time.Second

	// Randomized pause between media container creations keeps a burst of
	// sequential uploads below the platform's short-window rate limit.
	containerPauseMin = 1200 * time.Millisecond
	containerPauseMax = 1800 * time.Millisecond
)

// APIError is a structured non-2xx platform response.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, e.Body)
}

type Client struct {
	apiBase    string
	authBase   string
	httpClient *http.Client
	retry      httpretry.Policy

	// pause is swapped out by tests; production uses the randomized delay.
	pause func()
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithRetryPolicy(p httpretry.Policy) Option {
	return func(cl *Client) { cl.retry = p }
}

func WithPause(pause func()) Option {
	return func(cl *Client) { cl.pause = pause }
}

func NewClient(apiBase, authBase string, opts ...Option) *Client {
	cl := &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		authBase:   strings.TrimRight(authBase, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		retry: httpretry.Policy{
			MaxAttempts: httpretry.DefaultMaxAttempts,
			BaseDelay:   httpretry.DefaultBaseDelay,
		},
	}
	cl.pause = func() {
		span := containerPauseMax - containerPauseMin
		time.Sleep(containerPauseMin + time.Duration(rand.Int63n(int64(span))))
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

func (c *Client) post(ctx context.Context, op, rawURL, bearer string) (map[string]any, error) {
	resp, err := httpretry.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return parsed, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// CreateTextPost publishes text immediately (auto_publish_text) and returns
// the post id.
func (c *Client) CreateTextPost(ctx context.Context, accessToken, text string) (string, error) {
	u, _ := url.Parse(c.apiBase + "/me/threads")
	q := u.Query()
	q.Set("media_type", "TEXT")
	q.Set("text", text)
	q.Set("auto_publish_text", "true")
	u.RawQuery = q.Encode()

	res, err := c.post(ctx, "create text", u.String(), accessToken)
	if err != nil {
		return "", err
	}
	return stringField(res, "id"), nil
}

// CreateMediaContainer stages one image and returns the container id. The
// caption is optional; multi-image sequences attach it to the first
// container only.
func (c *Client) CreateMediaContainer(ctx context.Context, accessToken, text, imageURL string) (string, error) {
	u, _ := url.Parse(c.apiBase + "/me/threads")
	q := u.Query()
	q.Set("media_type", "IMAGE")
	if text != "" {
		q.Set("text", text)
	}
	q.Set("image_url", imageURL)
	u.RawQuery = q.Encode()

	res, err := c.post(ctx, "create image container", u.String(), accessToken)
	if err != nil {
		return "", err
	}
	return stringField(res, "id"), nil
}

// PublishContainer turns a staged container into a visible post.
func (c *Client) PublishContainer(ctx context.Context, accessToken, containerID string) (string, error) {
	u, _ := url.Parse(c.apiBase + "/me/threads_publish")
	q := u.Query()
	q.Set("creation_id", containerID)
	u.RawQuery = q.Encode()

	res, err := c.post(ctx, "publish", u.String(), accessToken)
	if err != nil {
		return "", err
	}
	return stringField(res, "id"), nil
}

// Publish resolves one attempt into platform calls. Without media it is a
// single auto-publishing text post; with media it creates one container per
// URL in order and publishes the last one. Already-created containers are
// abandoned on failure; the platform expires them on its own.
func (c *Client) Publish(ctx context.Context, accessToken, text string, mediaURLs []string) (domainRunner.PublishResult, error) {
	if len(mediaURLs) == 0 {
		postID, err := c.CreateTextPost(ctx, accessToken, text)
		if err != nil {
			return domainRunner.PublishResult{}, err
		}
		return domainRunner.PublishResult{PostID: postID}, nil
	}

	containerIDs := make([]string, 0, len(mediaURLs))
	for i, mediaURL := range mediaURLs {
		caption := ""
		if i == 0 {
			caption = text
		}
		if i > 0 {
			c.pause()
		}
		containerID, err := c.CreateMediaContainer(ctx, accessToken, caption, mediaURL)
		if err != nil {
			return domainRunner.PublishResult{}, err
		}
		containerIDs = append(containerIDs, containerID)
	}

	last := containerIDs[len(containerIDs)-1]
	postID, err := c.PublishContainer(ctx, accessToken, last)
	if err != nil {
		return domainRunner.PublishResult{}, err
	}

	logrus.Debugf("[THREADS] Published %d container(s) as post %s", len(containerIDs), postID)
	return domainRunner.PublishResult{PostID: postID, ContainerIDs: containerIDs}, nil
}

// TokenResponse is what both OAuth exchanges return.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      any    `json:"user_id,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// UserIDString normalizes the user id, which the platform returns either as
// a JSON number or a string.
func (t TokenResponse) UserIDString() string {
	switch v := t.UserID.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// ExchangeCodeForToken trades an authorization code for a short-lived
// access token.
func (c *Client) ExchangeCodeForToken(ctx context.Context, clientID, clientSecret, redirectURI, code string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)
	form.Set("code", code)

	resp, err := httpretry.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.apiBase+"/oauth/access_token", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return TokenResponse{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("token exchange: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenResponse{}, &APIError{Op: "token exchange", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return TokenResponse{}, fmt.Errorf("token exchange: decode response: %w", err)
	}
	return token, nil
}

// ExchangeToLongLived upgrades a short-lived token. Callers treat failure as
// non-fatal and keep the short-lived token.
func (c *Client) ExchangeToLongLived(ctx context.Context, clientSecret, accessToken string) (TokenResponse, error) {
	u, _ := url.Parse(c.apiBase + "/access_token")
	q := u.Query()
	q.Set("grant_type", "th_exchange_token")
	q.Set("client_secret", clientSecret)
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	resp, err := httpretry.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u.String(), nil)
	})
	if err != nil {
		return TokenResponse{}, fmt.Errorf("long-lived exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("long-lived exchange: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenResponse{}, &APIError{Op: "long-lived exchange", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return TokenResponse{}, fmt.Errorf("long-lived exchange: decode response: %w", err)
	}
	return token, nil
}

// AuthorizeURL builds the consent redirect for the OAuth handshake.
func (c *Client) AuthorizeURL(clientID, redirectURI string, scopes []string) string {
	u, _ := url.Parse(c.authBase + "/oauth/authorize")
	q := u.Query()
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("response_type", "code")
	u.RawQuery = q.Encode()
	return u.String()
}
