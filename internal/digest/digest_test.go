package digest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/internal/model"
)

var day = time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)

func rec(node, zone string, lmp, cong float64) model.PriceRecord {
	return model.PriceRecord{
		Node:       node,
		Zone:       zone,
		LMP:        decimal.NewFromFloat(lmp),
		Energy:     decimal.NewFromFloat(lmp - cong),
		Congestion: decimal.NewFromFloat(cong),
		Loss:       decimal.Zero,
		Timestamp:  day.Add(14 * time.Hour),
	}
}

func TestBuild_EmptyRecords(t *testing.T) {
	out, err := Build(nil, []model.ZoneStatistic{{Zone: "AEP"}}, day)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.InsufficientData))
	assert.Empty(t, out)
}

func TestTopRecords_SortedSubset(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for size := 1; size <= 40; size++ {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			var in []model.PriceRecord
			used := map[int]bool{}
			for len(in) < size {
				cents := r.Intn(100000)
				if used[cents] {
					continue
				}
				used[cents] = true
				in = append(in, model.PriceRecord{
					Node: fmt.Sprintf("N%d", cents),
					LMP:  decimal.New(int64(cents), -2),
				})
			}

			top := TopRecords(in, TopN)
			want := size
			if want > TopN {
				want = TopN
			}
			require.Len(t, top, want)

			nodes := map[string]bool{}
			for _, p := range in {
				nodes[p.Node] = true
			}
			for i, p := range top {
				assert.True(t, nodes[p.Node], "record %s not in input", p.Node)
				if i > 0 {
					assert.True(t, top[i-1].LMP.GreaterThan(p.LMP), "not strictly descending at %d", i)
				}
			}
		})
	}
}

func TestTopRecords_TiesKeepInputOrder(t *testing.T) {
	in := []model.PriceRecord{
		rec("FIRST", "A", 25, 0),
		rec("HIGH", "A", 90, 0),
		rec("SECOND", "B", 25, 0),
		rec("THIRD", "C", 25, 0),
	}
	top := TopRecords(in, TopN)
	require.Len(t, top, 4)
	assert.Equal(t, []string{"HIGH", "FIRST", "SECOND", "THIRD"},
		[]string{top[0].Node, top[1].Node, top[2].Node, top[3].Node})
	// Input untouched.
	assert.Equal(t, "FIRST", in[0].Node)
}

func TestBuild_Deterministic(t *testing.T) {
	records := []model.PriceRecord{
		rec("PSEG_1", "PSEG", 120.5, 40.25),
		rec("BGE_7", "BGE", 99.99, 12),
		rec("AEP_3", "AEP", 31, -1.5),
	}
	zones := []model.ZoneStatistic{
		{Zone: "PSEG", Records: 1, AvgLMP: decimal.NewFromFloat(120.5), MaxLMP: decimal.NewFromFloat(120.5)},
	}

	a, err := Build(records, zones, day)
	require.NoError(t, err)
	b, err := Build(records, zones, day)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_Format(t *testing.T) {
	records := []model.PriceRecord{
		rec("AEP_3", "AEP", 31, -1.5),
		rec("PSEG_1", "PSEG", 120.5, 40.25),
	}
	zones := []model.ZoneStatistic{
		{
			Zone: "PSEG", Records: 288,
			AvgLMP: decimal.RequireFromString("75.31"), MaxLMP: decimal.RequireFromString("120.50"),
			AvgCongestion: decimal.RequireFromString("10.02"), MaxCongestion: decimal.RequireFromString("40.25"),
		},
	}

	out, err := Build(records, zones, day)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "PJM Real-Time Market Analysis - 2025-07-14\n"))
	assert.Contains(t, out, " 1. PSEG_1               | Zone: PSEG   | LMP: $ 120.50 | Cong: $ 40.25 | Energy: $ 80.25\n")
	assert.Contains(t, out, " 2. AEP_3                | Zone: AEP    | LMP: $  31.00 | Cong: $ -1.50 | Energy: $ 32.50\n")
	assert.Contains(t, out, "PSEG       288        $    75.31  $   120.50  $    10.02  $    40.25\n")
	assert.Contains(t, out, "Average LMP: $75.75/MWh\n")
	assert.Contains(t, out, "Peak LMP: $120.50/MWh\n")
	assert.Contains(t, out, "Average Congestion: $19.38/MWh\n")
	assert.Contains(t, out, "Max Congestion: $40.25/MWh\n")
}

func TestBuild_ListsAllWhenFewerThanTopN(t *testing.T) {
	var records []model.PriceRecord
	for i := 0; i < 4; i++ {
		records = append(records, rec(fmt.Sprintf("N%d", i), "A", float64(10+i), 0))
	}
	out, err := Build(records, nil, day)
	require.NoError(t, err)
	assert.Contains(t, out, " 4. N0 ")
	assert.NotContains(t, out, " 5. ")
}

func TestBuild_HundredRecordsTwoZones(t *testing.T) {
	// Prices 10.00, 10.50, ... 59.50; mean = (100*10 + 0.5*4950) / 100 = 34.75.
	var records []model.PriceRecord
	for i := 99; i >= 0; i-- {
		zone := "A"
		if i%2 == 1 {
			zone = "B"
		}
		records = append(records, rec(fmt.Sprintf("NODE_%03d", i), zone, 10+0.5*float64(i), float64(i)/10))
	}
	zones := []model.ZoneStatistic{
		{Zone: "A", Records: 50, AvgLMP: decimal.NewFromInt(50), MaxLMP: decimal.NewFromInt(59)},
		{Zone: "B", Records: 50, AvgLMP: decimal.NewFromInt(30), MaxLMP: decimal.NewFromInt(59)},
	}

	out, err := Build(records, zones, day)
	require.NoError(t, err)

	zoneA := strings.Index(out, "\nA          50")
	zoneB := strings.Index(out, "\nB          50")
	require.NotEqual(t, -1, zoneA)
	require.NotEqual(t, -1, zoneB)
	assert.Less(t, zoneA, zoneB)

	assert.Contains(t, out, "Average LMP: $34.75/MWh\n")
	assert.Contains(t, out, "Peak LMP: $59.50/MWh\n")
	// Congestion 0.0 .. 9.9, mean 4.95.
	assert.Contains(t, out, "Average Congestion: $4.95/MWh\n")
	assert.Contains(t, out, "Max Congestion: $9.90/MWh\n")
	assert.Contains(t, out, "15. NODE_085")
	assert.NotContains(t, out, "16. ")
}

func TestBuild_ZoneOrderPreserved(t *testing.T) {
	zones := []model.ZoneStatistic{
		{Zone: "LOW", AvgLMP: decimal.NewFromInt(5)},
		{Zone: "HIGH", AvgLMP: decimal.NewFromInt(500)},
	}
	out, err := Build([]model.PriceRecord{rec("N", "LOW", 5, 0)}, zones, day)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "\nLOW "), strings.Index(out, "\nHIGH "))
}

func TestCompute_NegativePrices(t *testing.T) {
	m, err := Compute([]model.PriceRecord{rec("A", "Z", -12, -3), rec("B", "Z", -4, -9)})
	require.NoError(t, err)
	assert.Equal(t, "-8.00", m.AvgLMP.StringFixed(2))
	assert.Equal(t, "-4.00", m.MaxLMP.StringFixed(2))
	assert.Equal(t, "-3.00", m.MaxCongestion.StringFixed(2))
}
