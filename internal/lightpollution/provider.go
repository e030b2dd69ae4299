package lightpollution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPProvider queries a raster lookup service that answers
// GET <url>?lon=..&lat=.. with {"bortle": 4, "radiance": 0.42}.
type HTTPProvider struct {
	client *resty.Client
	url    string
}

// NewHTTPProvider creates a provider for the lookup service at url.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetHeader("Accept", "application/json")

	return &HTTPProvider{client: client, url: url}
}

type rasterResponse struct {
	Bortle   int     `json:"bortle"`
	Radiance float32 `json:"radiance"`
}

// LightPollution implements Provider.
func (p *HTTPProvider) LightPollution(ctx context.Context, lonDeg, latDeg float64) (Reading, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("lon", strconv.FormatFloat(lonDeg, 'f', 6, 64)).
		SetQueryParam("lat", strconv.FormatFloat(latDeg, 'f', 6, 64)).
		Get(p.url)
	if err != nil {
		return Reading{}, fmt.Errorf("querying light pollution raster: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return Reading{}, fmt.Errorf("%w: (%.4f, %.4f) outside light pollution dataset", ErrOutOfRange, lonDeg, latDeg)
	default:
		return Reading{}, fmt.Errorf("light pollution raster returned status %d", resp.StatusCode())
	}

	var body rasterResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Reading{}, fmt.Errorf("decoding light pollution response: %w", err)
	}
	if body.Radiance < 0 {
		return Reading{}, fmt.Errorf("light pollution raster returned negative radiance %.3f", body.Radiance)
	}

	return Reading{Bortle: body.Bortle, Radiance: body.Radiance}, nil
}

// StaticProvider answers every in-range coordinate with the same reading.
// Used for offline runs and in tests.
type StaticProvider struct {
	Reading Reading
}

// LightPollution implements Provider.
func (p StaticProvider) LightPollution(_ context.Context, lonDeg, latDeg float64) (Reading, error) {
	if err := ValidateCoordinates(lonDeg, latDeg); err != nil {
		return Reading{}, err
	}
	return p.Reading, nil
}

var (
	_ Provider = (*HTTPProvider)(nil)
	_ Provider = StaticProvider{}
)
