// Package digest turns a day of LMP records and zone aggregates into the
// fixed-format text handed to the narrative generator.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/internal/model"
)

// TopN is the number of highest-priced records listed in the digest.
const TopN = 15

var rule = strings.Repeat("=", 70)

// Metrics are the whole-dataset scalars printed at the end of the digest.
// They describe the records handed to Build, not the full day.
type Metrics struct {
	AvgLMP        decimal.Decimal
	MaxLMP        decimal.Decimal
	AvgCongestion decimal.Decimal
	MaxCongestion decimal.Decimal
}

// TopRecords returns up to n records ordered by LMP descending. Equal prices
// keep their input order. The input slice is not modified.
func TopRecords(records []model.PriceRecord, n int) []model.PriceRecord {
	sorted := make([]model.PriceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LMP.GreaterThan(sorted[j].LMP)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Compute returns mean and max LMP and congestion over records.
func Compute(records []model.PriceRecord) (Metrics, error) {
	if len(records) == 0 {
		return Metrics{}, failure.New(failure.InsufficientData, "digest: no price records to summarize")
	}

	var m Metrics
	lmpSum := decimal.Zero
	congSum := decimal.Zero
	for i, r := range records {
		lmpSum = lmpSum.Add(r.LMP)
		congSum = congSum.Add(r.Congestion)
		if i == 0 || r.LMP.GreaterThan(m.MaxLMP) {
			m.MaxLMP = r.LMP
		}
		if i == 0 || r.Congestion.GreaterThan(m.MaxCongestion) {
			m.MaxCongestion = r.Congestion
		}
	}
	n := decimal.NewFromInt(int64(len(records)))
	m.AvgLMP = lmpSum.Div(n)
	m.AvgCongestion = congSum.Div(n)
	return m, nil
}

// Build renders the digest for date. Zones are printed in the order given.
func Build(records []model.PriceRecord, zones []model.ZoneStatistic, date time.Time) (string, error) {
	metrics, err := Compute(records)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PJM Real-Time Market Analysis - %s\n", date.Format("2006-01-02"))
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "TOP %d HIGHEST LMP NODES:\n", TopN)
	for i, r := range TopRecords(records, TopN) {
		fmt.Fprintf(&b, "%2d. %-20s | Zone: %-6s | LMP: $%7s | Cong: $%6s | Energy: $%6s\n",
			i+1, r.Node, r.Zone, money(r.LMP), money(r.Congestion), money(r.Energy))
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("ZONE-LEVEL STATISTICS:\n")
	fmt.Fprintf(&b, "%-10s %-10s %-12s %-12s %-12s %-12s\n",
		"Zone", "Records", "Avg LMP", "Max LMP", "Avg Cong", "Max Cong")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	for _, z := range zones {
		fmt.Fprintf(&b, "%-10s %-10d $%9s  $%9s  $%9s  $%9s\n",
			z.Zone, z.Records, money(z.AvgLMP), money(z.MaxLMP), money(z.AvgCongestion), money(z.MaxCongestion))
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("OVERALL MARKET METRICS:\n")
	fmt.Fprintf(&b, "Average LMP: $%s/MWh\n", money(metrics.AvgLMP))
	fmt.Fprintf(&b, "Peak LMP: $%s/MWh\n", money(metrics.MaxLMP))
	fmt.Fprintf(&b, "Average Congestion: $%s/MWh\n", money(metrics.AvgCongestion))
	fmt.Fprintf(&b, "Max Congestion: $%s/MWh\n", money(metrics.MaxCongestion))

	return b.String(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
