package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Deficit is one recorded day of cumulative deficit.
type Deficit struct {
	FieldID      string  `json:"field_id"`
	Crop         string  `json:"crop,omitempty"`
	CumulativeMM float64 `json:"cumulative_mm"`
	Date         string  `json:"date"` // YYYY-MM-DD
}

type latestQuery struct {
	Field     string
	Days      int
	Limit     int
	TimeoutMS int
}

func parseLatest(r *http.Request, defDays, defLim, defTOms int) latestQuery {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return latestQuery{
		Field:     strings.TrimSpace(q.Get("field")),
		Days:      get("days", defDays, 1, 366),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildFlux(bucket string, p latestQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: -%dd)\n", p.Days)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q and r._field == \"cumulative\")\n", Measurement)
	if p.Field != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.field_id == %q)\n", p.Field)
	}
	b.WriteString("  |> keep(columns: [\"_time\",\"_value\",\"field_id\",\"crop\"])\n")
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"_time\"], desc: true)\n")
	fmt.Fprintf(&b, "  |> limit(n:%d)\n", p.Limit)
	return b.String()
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return 0
}

func tagOf(v interface{}) string {
	s, _ := v.(string)
	return s
}

// NewLatestHandler serves GET /audits/latest?field=&limit=&days= with the
// most recent cumulative deficits, newest first. Query failures yield an
// empty list and an X-Error header.
func NewLatestHandler(q api.QueryAPI, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := parseLatest(r, 14, 20, 2000)

		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		res, err := q.Query(ctx, buildFlux(bucket, p))
		if err != nil {
			w.Header().Set("X-Error", "influx-query-error")
			_, _ = w.Write([]byte("[]"))
			return
		}
		defer res.Close()

		out := make([]Deficit, 0, p.Limit)
		for res.Next() {
			rec := res.Record()
			out = append(out, Deficit{
				FieldID:      tagOf(rec.ValueByKey("field_id")),
				Crop:         tagOf(rec.ValueByKey("crop")),
				CumulativeMM: toFloat(rec.Value()),
				Date:         rec.Time().UTC().Format("2006-01-02"),
			})
		}
		if res.Err() != nil {
			w.Header().Set("X-Error", "influx-iter-error")
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}
