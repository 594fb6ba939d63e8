package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/couchcryptid/pukaar-service/internal/adapter/fallback"
	"github.com/couchcryptid/pukaar-service/internal/adapter/overpass"
	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/observability"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Refresh the fallback dataset from OpenStreetMap",
	Long:  `Fetch the services around a point from Overpass, normalize them and write them in the fallback dataset format.`,
	RunE:  runSnapshot,
}

var (
	snapshotLat    float64
	snapshotLng    float64
	snapshotRadius int
	snapshotOut    string
)

func init() {
	snapshotCmd.Flags().Float64Var(&snapshotLat, "lat", 0, "latitude of the centre; defaults to DEFAULT_LAT")
	snapshotCmd.Flags().Float64Var(&snapshotLng, "lng", 0, "longitude of the centre; defaults to DEFAULT_LNG")
	snapshotCmd.Flags().IntVarP(&snapshotRadius, "radius", "r", 0, "search radius in metres; defaults to SEARCH_RADIUS_M")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "output path; defaults to FALLBACK_PATH")
	snapshotCmd.MarkFlagsRequiredTogether("lat", "lng")
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	center := cfg.DefaultReference
	if cmd.Flags().Changed("lat") {
		center = domain.Point{Lat: snapshotLat, Lng: snapshotLng}
	}
	radius := cfg.SearchRadiusM
	if snapshotRadius > 0 {
		radius = snapshotRadius
	}
	out := cfg.FallbackPath
	if snapshotOut != "" {
		out = snapshotOut
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := overpass.NewClient(overpass.Options{
		BaseURL: cfg.OverpassURL,
		Timeout: cfg.OverpassTimeout,
		RadiusM: radius,
		Rate:    cfg.OverpassRate,
	}, observability.NewMetricsForTesting(), logger)

	elements, err := client.FetchNearby(ctx, center)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	records := domain.NormalizeAll(elements)
	if len(records) == 0 {
		return errors.New("overpass returned no usable elements; dataset left unchanged")
	}
	domain.AnnotateDistances(records, center)
	domain.SortRecords(records, domain.SortByDistance)

	data, err := fallback.Encode(records)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec // dataset is served publicly
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("wrote %d records (%d elements) to %s\n", len(records), len(elements), out)

	printCategoryStats(records)
	return nil
}

func printCategoryStats(records []domain.ServiceRecord) {
	counts := map[domain.Category]int{}
	withPhone := 0
	for _, r := range records {
		counts[r.Category]++
		if r.Phone != "" {
			withPhone++
		}
	}
	fmt.Println("\n=== Dataset stats ===")
	for _, c := range domain.Categories {
		fmt.Printf("  %-10s %d\n", c, counts[c])
	}
	fmt.Printf("  with phone %d\n", withPhone)
}
