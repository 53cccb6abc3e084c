// Command oneshot audits one crop at one scheme and prints the ledger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	grpcapi "github.com/LeonardoBeccarini/irrigation_audit/internal/api/grpc"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/crops"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/auditor"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/weather"
)

func main() {
	var (
		scheme  = flag.String("scheme", "tono", "irrigation scheme ("+strings.Join(entities.SchemeKeys(), ", ")+")")
		crop    = flag.String("crop", "maize", "crop name")
		planted = flag.String("planted", "", "planting date YYYY-MM-DD (default 60 days ago)")
		today   = flag.String("today", "", "audit day YYYY-MM-DD (default today)")
		areaHa  = flag.Float64("area-ha", 1, "irrigated area in hectares")
		flowM3H = flag.Float64("flow-m3h", 20, "pump discharge in m3/h")
		seed    = flag.Float64("seed-mm", 0, "deficit carried into the first day (mm)")
		past    = flag.Int("past-days", 2, "observed days before today")
		baseURL = flag.String("url", weather.DefaultOpenMeteoURL, "Open-Meteo forecast endpoint")
		remote  = flag.String("grpc", "", "audit through a running auditor at host:port")
		asJSON  = flag.Bool("json", false, "print the report as JSON")
	)
	flag.Parse()

	site, ok := entities.Scheme(*scheme)
	if !ok {
		log.Fatalf("unknown scheme %q (want one of %s)", *scheme, strings.Join(entities.SchemeKeys(), ", "))
	}
	plantedOn := time.Now().UTC().AddDate(0, 0, -60)
	if *planted != "" {
		t, err := time.Parse(entities.DateLayout, *planted)
		if err != nil {
			log.Fatalf("invalid -planted: %v", err)
		}
		plantedOn = t
	}
	field := entities.Field{
		ID:      *scheme + "-" + strings.ToLower(*crop),
		Crop:    *crop,
		Planted: entities.Midnight(plantedOn),
		Site:    site,
		Pump:    entities.PumpConfig{AreaM2: entities.Hectares(*areaHa), DischargeM3H: *flowM3H},
		SeedMM:  *seed,
	}
	req := auditor.AuditRequest{Field: &field, Today: *today}

	fmt.Printf("Starting irrigation audit for %s in %s...\n", *crop, site.Name)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var (
		rep auditor.AuditReport
		err error
	)
	if *remote != "" {
		rep, err = auditRemote(ctx, *remote, req)
	} else {
		rep, err = auditLocal(ctx, *baseURL, *past, req)
	}
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			log.Fatal(err)
		}
		return
	}
	printReport(rep)
}

func auditLocal(ctx context.Context, baseURL string, past int, req auditor.AuditRequest) (auditor.AuditReport, error) {
	opts := weather.DefaultOpenMeteoOptions()
	opts.BaseURL = baseURL
	provider := weather.NewOpenMeteo(&http.Client{Timeout: 15 * time.Second}, opts)
	svc, err := auditor.NewService(crops.Default(), auditor.NewRegistry(), provider, nil, nil,
		auditor.Options{Params: fao56.DefaultParams(), PastDays: past})
	if err != nil {
		return auditor.AuditReport{}, err
	}
	return svc.Audit(ctx, req)
}

func auditRemote(ctx context.Context, addr string, req auditor.AuditRequest) (auditor.AuditReport, error) {
	conn, err := grpcapi.Dial(addr)
	if err != nil {
		return auditor.AuditReport{}, err
	}
	defer conn.Close()
	return grpcapi.NewClient(conn).RunAudit(ctx, req)
}

func printReport(rep auditor.AuditReport) {
	fmt.Println()
	fmt.Println("WEEKLY WATER AUDIT")
	fmt.Println(strings.Repeat("-", 72))
	fmt.Printf("Crop: %s (stage %s, Kc %.2f) at %s\n", rep.Crop, rep.Stage, rep.Kc, rep.Field.Site.Name)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tStage\tKc\tETo (mm)\tETc (mm)\tRain (mm)\tEff. rain (mm)\tDeficit (mm)\t")
	for i, d := range rep.Days {
		mark := ""
		if i == rep.TodayIndex {
			mark = " <"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%.2f\t%.2f\t%.2f\t%.1f\t%.1f\t%.2f\t\n",
			d.Date.Format(entities.DateLayout), mark, d.Stage, d.Kc, d.ETo, d.ETc, d.Rainfall, d.EffectiveRain, d.Cumulative)
	}
	_ = tw.Flush()

	fmt.Println()
	if rep.Schedule.Hours <= 0 {
		fmt.Printf("Status %s: no irrigation needed today (balance %.2f mm)\n", rep.Status, rep.DeficitMM)
		return
	}
	fmt.Printf("Status %s: apply %.2f mm = %.1f m3, run the pump %s\n",
		rep.Status, rep.DeficitMM, rep.Schedule.VolumeM3, rep.Schedule.Runtime())
}
