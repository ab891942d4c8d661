package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
)

// Client talks to the external blob store over HTTP. Uploads are PUT to
// <endpoint>/<pathname> with a bearer token; the store answers with the
// public locator of the stored object.
type Client struct {
	client   *http.Client
	endpoint string
	token    string
}

func New(endpoint string, token string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	fmt.Println("Initialize blob client with endpoint:", endpoint)
	return &Client{
		client:   &httpClient,
		endpoint: endpoint,
		token:    token,
	}
}

type putResponse struct {
	URL string `json:"url"`
}

func (c *Client) Put(ctx context.Context, pathname string, contentType string, content []byte) (string, error) {
	target := c.endpoint + "/" + url.PathEscape(pathname)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var parsed putResponse
	err = json.NewDecoder(resp.Body).Decode(&parsed)
	if err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}

	if parsed.URL == "" {
		return target, nil
	}
	return parsed.URL, nil
}

func (c *Client) Delete(ctx context.Context, locator string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, locator, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
