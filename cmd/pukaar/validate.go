package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/pukaar-service/internal/adapter/fallback"
	"github.com/couchcryptid/pukaar-service/internal/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dataset]",
	Short: "Check the fallback dataset for integrity problems",
	Long:  `Parse the fallback dataset and verify coordinates, categories, ratings and identity keys. Defaults to FALLBACK_PATH.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := cfg.FallbackPath
		if len(args) == 1 {
			path = args[0]
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !validateDataset(path, data) {
			return errors.New("validation failed")
		}
		return nil
	},
}

// phase tracks pass/fail for one group of checks.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateDataset(path string, data []byte) bool {
	fmt.Printf("=== Fallback dataset validation: %s ===\n\n", path)

	elements, err := fallback.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return false
	}

	phases := []*phase{
		checkCoordinates(elements),
		checkCategories(elements),
		checkRatings(elements),
		checkIdentity(elements),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-30s %s\n", p.name, status)
	}
	fmt.Printf("\nItems: %d, records after normalization: %d\n", len(elements), len(domain.NormalizeAll(elements)))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return true
	}
	fmt.Println("\nValidation FAILED.")
	return false
}

func label(i int, el domain.RawElement) string {
	if name := el.Tags["name"]; name != "" {
		return fmt.Sprintf("item %d (%s)", i, name)
	}
	return fmt.Sprintf("item %d", i)
}

func checkCoordinates(elements []domain.RawElement) *phase {
	p := &phase{name: "Coordinates"}
	for i, el := range elements {
		if el.Lat == nil || el.Lon == nil {
			p.errorf("%s: missing lat/lng", label(i, el))
			continue
		}
		lat, lng := *el.Lat, *el.Lon
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			p.errorf("%s: coordinates out of range (%g, %g)", label(i, el), lat, lng)
		}
		if lat == 0 || lng == 0 {
			p.errorf("%s: zero coordinate, no map marker possible", label(i, el))
		}
	}
	return p
}

func checkCategories(elements []domain.RawElement) *phase {
	p := &phase{name: "Categories"}
	for i, el := range elements {
		if el.Tags["type"] == "" {
			p.errorf("%s: missing type", label(i, el))
			continue
		}
		if c := domain.DetectCategory(el.Tags); c == domain.CategoryOther {
			p.errorf("%s: type %q maps to %q", label(i, el), el.Tags["type"], c)
		}
	}
	return p
}

func checkRatings(elements []domain.RawElement) *phase {
	p := &phase{name: "Ratings"}
	for i, el := range elements {
		if el.Rating != nil && (*el.Rating < 0 || *el.Rating > 5) {
			p.errorf("%s: rating %g outside 0-5", label(i, el), *el.Rating)
		}
	}
	return p
}

func checkIdentity(elements []domain.RawElement) *phase {
	p := &phase{name: "Identity and duplicates"}
	seen := map[string]int{}
	normalized := 0
	for i, el := range elements {
		if el.ID == "" {
			p.errorf("%s: missing id", label(i, el))
		}
		rec, ok := domain.Normalize(el)
		if !ok {
			continue
		}
		normalized++
		if first, dup := seen[rec.IdentityKey]; dup {
			p.errorf("%s: identity key %s already used by item %d", label(i, el), rec.IdentityKey, first)
			continue
		}
		seen[rec.IdentityKey] = i
	}
	if kept := len(domain.NormalizeAll(elements)); kept < normalized {
		p.errorf("%d items are duplicates by name and location", normalized-kept)
	}
	return p
}
