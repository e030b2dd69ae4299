package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultOpenWeatherMapURL = "https://api.openweathermap.org/data/3.0/onecall"

// OpenWeatherMap fetches hourly forecasts from the One Call API.
type OpenWeatherMap struct {
	client *resty.Client
	url    string
	apiKey string
}

// NewOpenWeatherMap creates a forecast provider. An empty url selects the
// public One Call 3.0 endpoint. Retries and timeouts are owned by the HTTP
// client configured here.
func NewOpenWeatherMap(url, apiKey string, timeout time.Duration) *OpenWeatherMap {
	if url == "" {
		url = defaultOpenWeatherMapURL
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second)
	client.SetHeader("Accept", "application/json")

	return &OpenWeatherMap{client: client, url: url, apiKey: apiKey}
}

// oneCallResponse is the subset of the One Call payload we use.
type oneCallResponse struct {
	Current struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"current"`
	Hourly []struct {
		Dt        int64   `json:"dt"`
		Clouds    float32 `json:"clouds"`
		WindSpeed float32 `json:"wind_speed"`
		Pop       float32 `json:"pop"`
		Humidity  float32 `json:"humidity"`
		Weather   []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"hourly"`
	Daily []struct {
		Dt      int64 `json:"dt"`
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"daily"`
}

// Forecast implements Provider.
func (o *OpenWeatherMap) Forecast(ctx context.Context, lonDeg, latDeg float64) (Bundle, error) {
	resp, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":     strconv.FormatFloat(latDeg, 'f', 4, 64),
			"lon":     strconv.FormatFloat(lonDeg, 'f', 4, 64),
			"exclude": "minutely,alerts",
			"units":   "metric",
			"appid":   o.apiKey,
		}).
		Get(o.url)
	if err != nil {
		return Bundle{}, fmt.Errorf("fetching OpenWeatherMap forecast: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Bundle{}, fmt.Errorf("OpenWeatherMap returned status %d", resp.StatusCode())
	}

	var body oneCallResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Bundle{}, fmt.Errorf("decoding OpenWeatherMap forecast: %w", err)
	}

	return body.bundle(), nil
}

func (r oneCallResponse) bundle() Bundle {
	b := Bundle{Hourly: make(map[Slot]HourlyForecast, len(r.Hourly))}
	for _, h := range r.Hourly {
		var desc string
		if len(h.Weather) > 0 {
			desc = h.Weather[0].Description
		}
		b.Hourly[SlotOf(time.Unix(h.Dt, 0))] = HourlyForecast{
			CloudCoverage:     h.Clouds,
			WindSpeed:         h.WindSpeed,
			PrecipProbability: h.Pop,
			Humidity:          h.Humidity,
			Description:       desc,
		}
	}

	sunrise, sunset := r.Current.Sunrise, r.Current.Sunset
	if (sunrise == 0 || sunset == 0) && len(r.Daily) > 0 {
		sunrise, sunset = r.Daily[0].Sunrise, r.Daily[0].Sunset
	}
	if sunrise != 0 {
		b.Sunrise = time.Unix(sunrise, 0).UTC()
	}
	if sunset != 0 {
		b.Sunset = time.Unix(sunset, 0).UTC()
	}
	return b
}

var _ Provider = (*OpenWeatherMap)(nil)
