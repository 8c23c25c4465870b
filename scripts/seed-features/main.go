// Command seed-features fills the feature_employee_week table with
// synthetic but plausible rows for local development. Absence labels are
// correlated with night-shift load so the trained models have signal to
// find.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

type featureRow struct {
	PersonPseudonym  string  `json:"person_pseudonym"`
	ISOYear          int     `json:"iso_year"`
	ISOWeek          int     `json:"iso_week"`
	NightShifts      float64 `json:"night_shifts"`
	WeekendShifts    float64 `json:"weekend_shifts"`
	OvertimeHours    float64 `json:"overtime_hours"`
	AvgShiftLength   float64 `json:"avg_shift_length"`
	ConsecutiveDays  float64 `json:"consecutive_days"`
	RestHoursAvg     float64 `json:"rest_hours_avg"`
	TotalAbsenceFlag float64 `json:"total_absence_flag"`
	EgenmeldtFlag    float64 `json:"egenmeldt_flag"`
}

func main() {
	var (
		storeURL = flag.String("store", os.Getenv("STORE_URL"), "Feature store base URL")
		key      = flag.String("key", os.Getenv("STORE_SERVICE_KEY"), "Feature store service key")
		persons  = flag.Int("persons", 50, "Number of employees to generate")
		weeks    = flag.Int("weeks", 26, "Number of weeks of history per employee")
		isoYear  = flag.Int("year", time.Now().UTC().Year(), "ISO year to generate rows for")
		seed     = flag.Int64("seed", 1, "Random seed")
	)
	flag.Parse()

	if *storeURL == "" || *key == "" {
		log.Fatal("store URL and service key are required (flags or STORE_URL / STORE_SERVICE_KEY)")
	}

	fmt.Printf("Seeding %d employees x %d weeks into %s...\n", *persons, *weeks, *storeURL)

	rng := rand.New(rand.NewSource(*seed))
	rows := make([]featureRow, 0, *persons**weeks)
	for p := 0; p < *persons; p++ {
		// Per-employee baseline: some carry heavy night loads, some none.
		nightLoad := rng.Float64() * 5
		for w := 1; w <= *weeks; w++ {
			night := nightLoad + rng.Float64()*2
			overtime := rng.Float64() * 15
			rest := 11 + rng.NormFloat64()*1.5

			// Absence probability rises with night shifts and short rest.
			risk := 0.05 + 0.08*night - 0.02*(rest-11)
			absent := 0.0
			if rng.Float64() < risk {
				absent = 1
			}
			egenmeldt := 0.0
			if absent == 1 && rng.Float64() < 0.6 {
				egenmeldt = 1
			}

			rows = append(rows, featureRow{
				PersonPseudonym:  fmt.Sprintf("emp-%04d", p),
				ISOYear:          *isoYear,
				ISOWeek:          w,
				NightShifts:      night,
				WeekendShifts:    rng.Float64() * 2,
				OvertimeHours:    overtime,
				AvgShiftLength:   7 + rng.Float64()*2,
				ConsecutiveDays:  float64(rng.Intn(7) + 1),
				RestHoursAvg:     rest,
				TotalAbsenceFlag: absent,
				EgenmeldtFlag:    egenmeldt,
			})
		}
	}

	client := resty.New().
		SetTimeout(60 * time.Second).
		SetHeader("apikey", *key).
		SetHeader("Authorization", "Bearer "+*key)

	const batchSize = 500
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		resp, err := client.R().
			SetQueryParam("on_conflict", "person_pseudonym,iso_year,iso_week").
			SetHeader("Prefer", "resolution=merge-duplicates").
			SetBody(rows[start:end]).
			Post(*storeURL + "/rest/v1/feature_employee_week")
		if err != nil {
			log.Fatalf("Failed to upsert batch: %v", err)
		}
		if resp.StatusCode() >= 300 {
			log.Fatalf("Upsert rejected: status %d, body: %s", resp.StatusCode(), resp.String())
		}
		fmt.Printf("  wrote rows %d-%d\n", start, end-1)
	}

	fmt.Printf("✓ Seeded %d feature rows\n", len(rows))
}
