package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
)

const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

var dailyVariables = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"relative_humidity_2m_max",
	"relative_humidity_2m_min",
	"relative_humidity_2m_mean",
	"dew_point_2m_mean",
	"shortwave_radiation_sum",
	"sunshine_duration",
	"wind_speed_10m_mean",
	"precipitation_sum",
	"et0_fao_evapotranspiration",
}

// OpenMeteoOptions tunes retries and the circuit breaker.
type OpenMeteoOptions struct {
	BaseURL         string
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerFailures uint32        // consecutive failures that open the breaker
	BreakerOpen     time.Duration // how long it stays open
}

func DefaultOpenMeteoOptions() OpenMeteoOptions {
	return OpenMeteoOptions{
		BaseURL:         DefaultOpenMeteoURL,
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
		BreakerFailures: 5,
		BreakerOpen:     time.Minute,
	}
}

// OpenMeteo reads daily aggregates from the Open-Meteo forecast API.
type OpenMeteo struct {
	client  *http.Client
	opts    OpenMeteoOptions
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteo(client *http.Client, opts OpenMeteoOptions) *OpenMeteo {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	def := DefaultOpenMeteoOptions()
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = def.InitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = def.MaxInterval
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = def.BreakerFailures
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = def.BreakerOpen
	}
	fails := opts.BreakerFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "openmeteo",
		Interval: time.Minute,
		Timeout:  opts.BreakerOpen,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("weather: breaker %s %s -> %s", name, from, to)
		},
	})
	return &OpenMeteo{client: client, opts: opts, circuit: cb}
}

func (p *OpenMeteo) Name() string { return "openmeteo" }

// Daily fetches [from, to] for the site. Days without precipitation data are
// read as dry; days without temperatures fail the whole request.
func (p *OpenMeteo) Daily(ctx context.Context, site entities.SiteLocation, from, to time.Time) ([]entities.DailyWeatherObservation, error) {
	if err := site.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadData, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("openmeteo: range %s..%s is reversed", from.Format(entities.DateLayout), to.Format(entities.DateLayout))
	}
	u := p.requestURL(site, from, to)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.opts.InitialInterval
	bo.MaxInterval = p.opts.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, p.opts.MaxRetries), ctx)

	var payload openMeteoResponse
	err := backoff.RetryNotify(func() error {
		res, err := p.circuit.Execute(func() (interface{}, error) {
			return p.fetch(ctx, u)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			var se *statusError
			if errors.As(err, &se) && !se.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		payload = res.(openMeteoResponse)
		return nil
	}, policy, func(err error, wait time.Duration) {
		log.Printf("weather: openmeteo retry in %s: %v", wait, err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openmeteo: %v", ErrUnavailable, err)
	}
	return payload.observations()
}

func (p *OpenMeteo) requestURL(site entities.SiteLocation, from, to time.Time) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(site.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(site.Longitude, 'f', 4, 64))
	q.Set("daily", strings.Join(dailyVariables, ","))
	q.Set("wind_speed_unit", "ms")
	q.Set("timezone", "GMT")
	q.Set("start_date", from.Format(entities.DateLayout))
	q.Set("end_date", to.Format(entities.DateLayout))
	return p.opts.BaseURL + "?" + q.Encode()
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d: %s", e.code, e.body) }

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func (p *OpenMeteo) fetch(ctx context.Context, u string) (openMeteoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return openMeteoResponse{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return openMeteoResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return openMeteoResponse{}, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
	var out openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return openMeteoResponse{}, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

type openMeteoResponse struct {
	Daily struct {
		Time      []string   `json:"time"`
		TMax      []*float64 `json:"temperature_2m_max"`
		TMin      []*float64 `json:"temperature_2m_min"`
		RHMax     []*float64 `json:"relative_humidity_2m_max"`
		RHMin     []*float64 `json:"relative_humidity_2m_min"`
		RHMean    []*float64 `json:"relative_humidity_2m_mean"`
		DewPoint  []*float64 `json:"dew_point_2m_mean"`
		Shortwave []*float64 `json:"shortwave_radiation_sum"` // MJ m-2
		Sunshine  []*float64 `json:"sunshine_duration"`       // s
		Wind10m   []*float64 `json:"wind_speed_10m_mean"`     // m/s
		Precip    []*float64 `json:"precipitation_sum"`
		SourceETo []*float64 `json:"et0_fao_evapotranspiration"`
	} `json:"daily"`
}

func (r openMeteoResponse) observations() ([]entities.DailyWeatherObservation, error) {
	d := r.Daily
	if len(d.Time) == 0 {
		return nil, fmt.Errorf("%w: no daily records", ErrBadData)
	}
	out := make([]entities.DailyWeatherObservation, 0, len(d.Time))
	for i, ts := range d.Time {
		date, err := time.ParseInLocation(entities.DateLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrBadData, ts)
		}
		tmax, tmin := at(d.TMax, i), at(d.TMin, i)
		if tmax == nil || tmin == nil {
			return nil, fmt.Errorf("%w: %s: missing temperature", ErrBadData, ts)
		}
		o := entities.DailyWeatherObservation{
			Date:           date,
			TMax:           *tmax,
			TMin:           *tmin,
			DewPoint:       at(d.DewPoint, i),
			RHMean:         at(d.RHMean, i),
			SolarRadiation: at(d.Shortwave, i),
			WindSpeed2m:    DefaultWindSpeed2m,
			SourceETo:      at(d.SourceETo, i),
		}
		if mx, mn := at(d.RHMax, i), at(d.RHMin, i); mx != nil && mn != nil {
			o.RHMax, o.RHMin = mx, mn
		}
		if s := at(d.Sunshine, i); s != nil {
			o.SunshineHours = entities.Float(*s / 3600)
		}
		if w := at(d.Wind10m, i); w != nil {
			o.WindSpeed2m = fao56.WindAt2m(*w, 10)
		}
		if pr := at(d.Precip, i); pr != nil && *pr > 0 {
			o.Precipitation = *pr
		}
		out = append(out, o)
	}
	return out, nil
}

func at(s []*float64, i int) *float64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}
