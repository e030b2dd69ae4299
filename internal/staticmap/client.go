// Package staticmap fetches small map images of observing sites for report
// attachments.
package staticmap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotPNG is returned when the map service answers with something other
// than a PNG image.
var ErrNotPNG = errors.New("static map response is not a PNG image")

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Client renders maps through an HTTP service addressed by a URL template.
// The placeholders {lon}, {lat} and {key} are substituted per request, e.g.
//
//	https://maps.example.com/static?center={lat},{lon}&zoom=9&size=600x300&key={key}
type Client struct {
	client   *resty.Client
	template string
	apiKey   string
}

// NewClient creates a map client.
func NewClient(template, apiKey string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(1)
	client.SetRetryWaitTime(time.Second)
	client.SetHeader("Accept", "image/png")

	return &Client{client: client, template: template, apiKey: apiKey}
}

// URL returns the request URL for a coordinate.
func (c *Client) URL(lonDeg, latDeg float64) string {
	r := strings.NewReplacer(
		"{lon}", strconv.FormatFloat(lonDeg, 'f', 5, 64),
		"{lat}", strconv.FormatFloat(latDeg, 'f', 5, 64),
		"{key}", url.QueryEscape(c.apiKey),
	)
	return r.Replace(c.template)
}

// StaticMap fetches the PNG for a coordinate.
func (c *Client) StaticMap(ctx context.Context, lonDeg, latDeg float64) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.URL(lonDeg, latDeg))
	if err != nil {
		return nil, fmt.Errorf("fetching static map: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("static map service returned status %d", resp.StatusCode())
	}

	body := resp.Body()
	if !bytes.HasPrefix(body, pngMagic) {
		return nil, fmt.Errorf("%w (content type %q, %d bytes)", ErrNotPNG, resp.Header().Get("Content-Type"), len(body))
	}
	return body, nil
}
