// Package archive imports calibration frame headers in bulk from an
// observation-archive JSON endpoint or a local dump file. It is a
// convenience for seeding an index; the engine itself never touches the
// network.
package archive

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
)

// Client fetches header dumps over HTTP with retries.
type Client struct {
	http *retryablehttp.Client
}

// NewClient builds a client, optionally routed through an HTTP proxy.
func NewClient(proxy string) (*Client, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 5
	retryClient.HTTPClient.Timeout = 60 * time.Second

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		retryClient.HTTPClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}
	return &Client{http: retryClient}, nil
}

// FetchFrames downloads and decodes a header dump.
func (c *Client) FetchFrames(ctx context.Context, rawURL string) ([]header.Set, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return DecodeFrames(body)
}

// DecodeFrames decodes a dump: either a bare JSON array of header objects
// or an object with a top-level "frames" array.
func DecodeFrames(data []byte) ([]header.Set, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid archive JSON")
	}
	root := gjson.ParseBytes(data)
	if root.IsObject() {
		frames := root.Get("frames")
		if !frames.IsArray() {
			return nil, fmt.Errorf("archive JSON has no frames array")
		}
		root = frames
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("archive JSON must be an array of header objects")
	}

	var out []header.Set
	var decodeErr error
	root.ForEach(func(_, frame gjson.Result) bool {
		h, err := header.FromJSON([]byte(frame.Raw))
		if err != nil {
			decodeErr = fmt.Errorf("frame %d: %w", len(out), err)
			return false
		}
		out = append(out, h)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}
