package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// LiveStatus is a streaming provider's view of one live broadcast.
type LiveStatus struct {
	ViewerCount int
	StartedAt   time.Time
}

// LiveStatusClient talks to the streaming provider's Helix-style API using
// app-level client credentials. The access token is cached until shortly
// before its expiry and refreshed under the mutex.
type LiveStatusClient struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Client       *http.Client
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewLiveStatusClient(baseURL, tokenURL, clientID, clientSecret string) *LiveStatusClient {
	return &LiveStatusClient{
		BaseURL:      baseURL,
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// token returns a valid app access token, fetching a fresh one via the
// client-credentials grant when the cached token is gone or about to expire.
func (c *LiveStatusClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, "POST", c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("live provider token request failed")
		return "", fmt.Errorf("token request failed: %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.accessToken = out.AccessToken
	// Refresh one minute early so in-flight requests never carry a stale token.
	c.tokenExpiry = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

// GetStreamStatus asks the provider whether the account is broadcasting.
// A nil status with nil error means the account is offline.
func (c *LiveStatusClient) GetStreamStatus(ctx context.Context, providerUserID string) (*LiveStatus, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/streams?user_id=%s", c.BaseURL, url.QueryEscape(providerUserID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-Id", c.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stream status request failed: %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Data []struct {
			ViewerCount int       `json:"viewer_count"`
			StartedAt   time.Time `json:"started_at"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &LiveStatus{
		ViewerCount: out.Data[0].ViewerCount,
		StartedAt:   out.Data[0].StartedAt,
	}, nil
}
