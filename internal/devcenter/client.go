// Package devcenter is the client for the DevCenter API: DevBuild channel
// resolution and dehydrated-object link resolution.
package devcenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/thrivegame/thrive-launcher-cli/internal/versions"
)

// MaxObjectBatch caps how many hashes one link-resolve request may carry.
const MaxObjectBatch = 100

const httpTimeout = 30 * time.Second

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to one DevCenter deployment.
type Client struct {
	baseURL  string
	http     HTTPDoer
	platform string
}

// New returns a client for the given DevCenter base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: httpTimeout},
		platform: runtime.GOOS,
	}
}

// NewWith returns a client with a custom HTTP client (for testing).
func NewWith(baseURL string, h HTTPDoer) *Client {
	c := New(baseURL)
	if h != nil {
		c.http = h
	}
	return c
}

type buildResponse struct {
	ID           int64  `json:"id"`
	BuildHash    string `json:"build_hash"`
	DownloadURL  string `json:"download_url"`
	DownloadHash string `json:"download_hash"`
	Verified     bool   `json:"verified"`
	Anonymous    bool   `json:"anonymous"`
}

// ResolveBuild fetches the exact build a channel currently points at.
// Implements versions.Resolver.
func (c *Client) ResolveBuild(ctx context.Context, channel versions.BuildChannel, manualID int64) (*versions.ExactBuild, error) {
	var url string
	switch channel {
	case versions.BuildOfTheDay:
		url = fmt.Sprintf("%s/api/v1/devbuild/botd?platform=%s", c.baseURL, c.platform)
	case versions.LatestBuild:
		url = fmt.Sprintf("%s/api/v1/devbuild/latest?platform=%s", c.baseURL, c.platform)
	case versions.ManuallySelected:
		url = fmt.Sprintf("%s/api/v1/devbuild/%d", c.baseURL, manualID)
	default:
		return nil, fmt.Errorf("unknown devbuild channel %v", channel)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch devbuild: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no devbuild available for channel %s", channel)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("devcenter error: %s", resp.Status)
	}

	var br buildResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parse devbuild response: %w", err)
	}
	if br.DownloadURL == "" || br.DownloadHash == "" {
		return nil, fmt.Errorf("devbuild %d has no usable download", br.ID)
	}
	return &versions.ExactBuild{
		ID:           br.ID,
		BuildHash:    br.BuildHash,
		DownloadURL:  br.DownloadURL,
		DownloadHash: br.DownloadHash,
		Verified:     br.Verified,
		Anonymous:    br.Anonymous,
	}, nil
}

type objectLinkRequest struct {
	Objects []string `json:"objects"`
}

type objectLinkResponse struct {
	Downloads map[string]string `json:"downloads"`
}

// ResolveObjectLinks resolves up to MaxObjectBatch content hashes into
// download URLs. Larger batches are a caller bug, not split silently.
func (c *Client) ResolveObjectLinks(ctx context.Context, hashes []string) (map[string]string, error) {
	if len(hashes) == 0 {
		return map[string]string{}, nil
	}
	if len(hashes) > MaxObjectBatch {
		return nil, fmt.Errorf("object batch too large: %d > %d", len(hashes), MaxObjectBatch)
	}

	body, err := json.Marshal(objectLinkRequest{Objects: hashes})
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/api/v1/download_dehydrated"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve object links: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("devcenter error: %s", resp.Status)
	}

	var olr objectLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&olr); err != nil {
		return nil, fmt.Errorf("parse object link response: %w", err)
	}
	for _, h := range hashes {
		if _, ok := olr.Downloads[h]; !ok {
			return nil, fmt.Errorf("devcenter did not resolve object %s", h)
		}
	}
	return olr.Downloads, nil
}
