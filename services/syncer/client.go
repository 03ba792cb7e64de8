package syncer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the remote record store: passwordless email sign-in plus
// one whole-document record per identity.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	deviceID   string
}

// NewClient creates a sync backend client for the given endpoint.
func NewClient(baseURL, apiKey, deviceID string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		deviceID:   deviceID,
	}
}

// codeResponse is the response to an email sign-in code request.
type codeResponse struct {
	ExpiresIn int `json:"expires_in"`
}

// TokenResponse is the session issued after a code is verified.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Identity    string `json:"identity"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Device-Id", c.deviceID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// RequestEmailCode asks the backend to mail a one-time sign-in code.
func (c *Client) RequestEmailCode(email string) error {
	payload := map[string]string{"email": email}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/auth/email/code", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sync api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sync email code failed: %s - %s", resp.Status, string(respBody))
	}

	var decoded codeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// VerifyEmailCode exchanges an emailed code for a session token.
func (c *Client) VerifyEmailCode(email, code string) (*TokenResponse, error) {
	payload := map[string]string{"email": email, "code": code}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/auth/email/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sync verify failed: %s - %s", resp.Status, string(respBody))
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("sync verify returned no token")
	}
	return &token, nil
}

// FetchDocument retrieves the raw library document stored for the signed-in
// identity. The second return reports whether a record exists at all.
func (c *Client) FetchDocument(accessToken string) ([]byte, bool, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/v1/library", nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("sync api request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("read response: %w", err)
		}
		return raw, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("sync fetch failed: %s - %s", resp.Status, string(respBody))
	}
}

// StoreDocument replaces the identity's record with the full document.
// There is no merge: the remote copy is overwritten wholesale, so
// cross-device conflicts resolve last-writer-wins by construction.
func (c *Client) StoreDocument(accessToken string, raw []byte) error {
	req, err := http.NewRequest(http.MethodPut, c.baseURL+"/v1/library", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sync api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sync store failed: %s - %s", resp.Status, string(respBody))
	}
	return nil
}
