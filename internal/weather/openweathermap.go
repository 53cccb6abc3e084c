package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

const DefaultOpenWeatherMapURL = "https://api.openweathermap.org/data/3.0/onecall"

// OpenWeatherMap reads the daily forecast of the One Call API. It has no
// solar radiation, so its days are always estimated with Hargreaves, and it
// only covers today and the following week.
type OpenWeatherMap struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewOpenWeatherMap(client *http.Client, apiKey, baseURL string) *OpenWeatherMap {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenWeatherMapURL
	}
	return &OpenWeatherMap{client: client, apiKey: apiKey, baseURL: baseURL}
}

func (c *OpenWeatherMap) Name() string { return "openweathermap" }

type owmTemp struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type owmDaily struct {
	Dt        int64    `json:"dt"`
	Temp      owmTemp  `json:"temp"`
	Humidity  *float64 `json:"humidity"`
	DewPoint  *float64 `json:"dew_point"`
	WindSpeed *float64 `json:"wind_speed"` // m/s at 10 m
	Rain      float64  `json:"rain"`
}

type owmResp struct {
	Daily []owmDaily `json:"daily"`
}

// Daily returns the forecast days that fall inside [from, to].
func (c *OpenWeatherMap) Daily(ctx context.Context, site entities.SiteLocation, from, to time.Time) ([]entities.DailyWeatherObservation, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: openweathermap: missing api key", ErrUnavailable)
	}
	if err := site.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadData, err)
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(site.Latitude, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(site.Longitude, 'f', 4, 64))
	q.Set("exclude", "current,minutely,hourly,alerts")
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openweathermap: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%w: openweathermap: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out owmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: openweathermap: decode: %v", ErrBadData, err)
	}

	lo, hi := entities.Midnight(from.UTC()), entities.Midnight(to.UTC())
	days := make([]entities.DailyWeatherObservation, 0, len(out.Daily))
	for _, d := range out.Daily {
		date := entities.Midnight(time.Unix(d.Dt, 0).UTC())
		if date.Before(lo) || date.After(hi) {
			continue
		}
		o := entities.DailyWeatherObservation{
			Date:          date,
			TMax:          d.Temp.Max,
			TMin:          d.Temp.Min,
			DewPoint:      d.DewPoint,
			RHMean:        d.Humidity,
			WindSpeed2m:   DefaultWindSpeed2m,
			Precipitation: d.Rain,
		}
		if d.WindSpeed != nil {
			o.WindSpeed2m = fao56.WindAt2m(*d.WindSpeed, 10)
		}
		days = append(days, o)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: openweathermap: no forecast day in %s..%s", ErrBadData, lo.Format(entities.DateLayout), hi.Format(entities.DateLayout))
	}
	return days, nil
}
