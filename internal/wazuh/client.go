package wazuh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	authenticatePath = "/security/user/authenticate"
	agentsPath       = "/agents"
	maxTokenBytes    = 64 << 10
)

type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
	CAFile    string        `mapstructure:"ca_file"`
	Timeout   time.Duration `mapstructure:"timeout"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	PageSize  int           `mapstructure:"page_size"`
}

// Client talks to the Wazuh manager REST API.
type Client struct {
	config Config
	http   *http.Client
	tokens *tokenCache
	group  singleflight.Group
}

func NewClient(config Config) (*Client, error) {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	tlsConfig, err := newTLSConfig(config)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &Client{
		config: config,
		http: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		tokens: newTokenCache(config.TokenTTL),
	}, nil
}

// Token returns a bearer token for the manager API. With a positive
// TokenTTL the token is reused until it expires; concurrent callers share
// one authentication request.
func (c *Client) Token(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if token, ok := c.tokens.Get(); ok {
			return token, nil
		}
		token, err := c.authenticate(ctx)
		if err != nil {
			return "", err
		}
		c.tokens.Set(token)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token.
func (c *Client) Invalidate() {
	c.tokens.Clear()
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	endpoint := c.config.BaseURL + authenticatePath + "?raw=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", &NetworkError{Op: "authenticate", Err: err}
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBytes))
	if err != nil {
		return "", &NetworkError{Op: "authenticate", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	case resp.StatusCode != http.StatusOK:
		return "", &NetworkError{Op: "authenticate", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "no token received"}
	}

	slog.Debug("Authenticated with Wazuh manager", "base_url", c.config.BaseURL)
	return token, nil
}

// ListAgents returns the manager's full agent roster. With a positive
// PageSize it pages through the roster until total_affected_items is
// reached; otherwise it returns whatever the first response holds.
func (c *Client) ListAgents(ctx context.Context, token string) ([]Agent, error) {
	var all []Agent
	offset := 0

	for {
		page, err := c.listAgentsPage(ctx, token, offset)
		if err != nil {
			return nil, err
		}

		items := page.Data.AffectedItems
		all = append(all, items...)
		offset += len(items)

		if c.config.PageSize <= 0 || len(items) == 0 || offset >= page.Data.TotalAffectedItems {
			break
		}
	}

	return all, nil
}

func (c *Client) listAgentsPage(ctx context.Context, token string, offset int) (*AgentsResponse, error) {
	query := url.Values{}
	if c.config.PageSize > 0 {
		query.Set("limit", strconv.Itoa(c.config.PageSize))
		query.Set("offset", strconv.Itoa(offset))
	}

	endpoint := c.config.BaseURL + agentsPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &NetworkError{Op: "list agents", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "list agents", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.Invalidate()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTokenBytes))
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Op: "list agents", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var page AgentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &NetworkError{Op: "list agents", Err: fmt.Errorf("decode response: %w", err)}
	}
	if page.Error != 0 && len(page.Data.AffectedItems) == 0 {
		return nil, &NetworkError{Op: "list agents", Err: errors.New(page.Message)}
	}

	return &page, nil
}

// errorMessage extracts the "detail" or "title" field of a Wazuh error
// body, falling back to the HTTP status line.
func errorMessage(body []byte, fallback string) string {
	var apiErr struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if apiErr.Title != "" {
			return apiErr.Title
		}
	}
	return fallback
}
