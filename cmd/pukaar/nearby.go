package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/couchcryptid/pukaar-service/internal/adapter/fallback"
	"github.com/couchcryptid/pukaar-service/internal/adapter/overpass"
	"github.com/couchcryptid/pukaar-service/internal/discovery"
	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/couchcryptid/pukaar-service/internal/observability"
	"github.com/spf13/cobra"
)

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "List services near a point",
	Long:  `Run one fetch cycle and print the ranked services. Without --lat/--lng the default reference point is used.`,
	RunE:  runNearby,
}

var (
	nearbyLat      float64
	nearbyLng      float64
	nearbyCategory string
	nearbyText     string
	nearbySort     string
	nearbyLimit    int
	nearbyJSON     bool
)

func init() {
	nearbyCmd.Flags().Float64Var(&nearbyLat, "lat", 0, "latitude of the reference point")
	nearbyCmd.Flags().Float64Var(&nearbyLng, "lng", 0, "longitude of the reference point")
	nearbyCmd.Flags().StringVarP(&nearbyCategory, "category", "c", "", "hospital, clinic, pharmacy, foodbank or other")
	nearbyCmd.Flags().StringVarP(&nearbyText, "query", "q", "", "name or address substring")
	nearbyCmd.Flags().StringVarP(&nearbySort, "sort", "s", "distance", "distance or rating")
	nearbyCmd.Flags().IntVarP(&nearbyLimit, "limit", "n", 10, "maximum rows to print (0 for all)")
	nearbyCmd.Flags().BoolVar(&nearbyJSON, "json", false, "print the result as JSON")
	nearbyCmd.MarkFlagsRequiredTogether("lat", "lng")
}

func runNearby(cmd *cobra.Command, _ []string) error {
	category, err := domain.ParseCategory(nearbyCategory)
	if err != nil {
		return err
	}
	sort, err := domain.ParseSortMode(nearbySort)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetricsForTesting()
	geodata := overpass.NewClient(overpass.Options{
		BaseURL: cfg.OverpassURL,
		Timeout: cfg.OverpassTimeout,
		RadiusM: cfg.SearchRadiusM,
		Rate:    cfg.OverpassRate,
	}, metrics, logger)
	finder := discovery.NewFinder(discovery.Config{
		DefaultReference: cfg.DefaultReference,
		LocationTimeout:  cfg.LocationTimeout,
		RatingMode:       cfg.RatingMode,
	}, geodata, fallback.NewSource(cfg.FallbackPath, nil), metrics, logger)

	locator := discovery.NoLocator
	if cmd.Flags().Changed("lat") {
		locator = discovery.FixedLocator(domain.Point{Lat: nearbyLat, Lng: nearbyLng})
	}

	res, err := finder.NewSession().FindNearby(ctx, discovery.Request{
		Locator: locator,
		Query:   domain.Query{Category: category, Text: nearbyText, Sort: sort},
	})
	if err != nil {
		return err
	}

	for _, n := range res.Notices {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
	}

	if nearbyLimit > 0 && len(res.Records) > nearbyLimit {
		res.Records = res.Records[:nearbyLimit]
	}
	if nearbyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printRecords(res)
}

func printRecords(res discovery.Result) error {
	fmt.Printf("%d of %d services near %.4f, %.4f (%s reference, %s data)\n\n",
		len(res.Records), res.Total, res.Reference.Lat, res.Reference.Lng, res.ReferenceSource, res.Source)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tCATEGORY\tDISTANCE\tRATING\tCALL\tADDRESS")
	for i, r := range res.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, r.Name, r.Category, formatDistance(r.DistanceKm), formatRating(r), r.CallNumber(), r.Address)
	}
	return tw.Flush()
}

func formatDistance(km *float64) string {
	if km == nil {
		return "-"
	}
	return strconv.FormatFloat(domain.RoundKm(*km), 'f', 2, 64) + " km"
}

func formatRating(r domain.ServiceRecord) string {
	if r.Rating == nil {
		return "-"
	}
	s := strconv.FormatFloat(*r.Rating, 'f', 1, 64)
	if r.RatingPlaceholder {
		s += "*"
	}
	return s
}
