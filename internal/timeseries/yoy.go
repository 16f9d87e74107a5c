package timeseries

import (
	"sort"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/util"
	"github.com/shopspring/decimal"
)

// Daily series have weekend and holiday gaps, so the year-ago observation is
// searched for in a window around 365 days instead of by exact key.
const (
	DailyYoYMinDays = 360
	DailyYoYMaxDays = 370
)

var hundred = decimal.NewFromInt(100)

// AnnotateYoY attaches year-over-year changes to an ascending series.
// Points without a usable year-ago observation keep a nil YoYChange.
// The input slice is not modified.
func AnnotateYoY(points []domain.Point, freq domain.Frequency, mode domain.YoYMode) []domain.Point {
	out := make([]domain.Point, len(points))
	copy(out, points)

	if mode == domain.YoYNone || len(out) == 0 {
		return out
	}

	if freq == domain.FrequencyDaily {
		annotateDaily(out, mode)
	} else {
		annotateExact(out, mode)
	}
	return out
}

// annotateExact looks the year-ago point up by key (YYYY-MM or YYYY)
func annotateExact(points []domain.Point, mode domain.YoYMode) {
	byKey := make(map[string]float64, len(points))
	for _, p := range points {
		byKey[p.Date] = p.Value
	}

	for i := range points {
		key, ok := util.YearAgoKey(points[i].Date)
		if !ok {
			continue
		}
		prev, found := byKey[key]
		if !found {
			continue
		}
		points[i].YoYChange = Delta(points[i].Value, prev, mode)
	}
}

// annotateDaily takes the earliest point dated 360 to 370 days before each point.
// Points whose date does not parse as YYYY-MM-DD are skipped.
func annotateDaily(points []domain.Point, mode domain.YoYMode) {
	type dated struct {
		idx int
		at  time.Time
	}

	series := make([]dated, 0, len(points))
	for i, p := range points {
		t, err := util.ParseDay(p.Date)
		if err != nil {
			continue
		}
		series = append(series, dated{idx: i, at: t})
	}

	for k, cur := range series {
		earliest := cur.at.AddDate(0, 0, -DailyYoYMaxDays)
		start := sort.Search(k, func(j int) bool {
			return !series[j].at.Before(earliest)
		})
		for j := start; j < k; j++ {
			days := util.DaysBetween(series[j].at, cur.at)
			if days < DailyYoYMinDays {
				break
			}
			if days <= DailyYoYMaxDays {
				prev := points[series[j].idx].Value
				points[cur.idx].YoYChange = Delta(points[cur.idx].Value, prev, mode)
				break
			}
		}
	}
}

// Delta computes the change from prev to curr. It returns nil when prev is zero
// or the mode is none.
func Delta(curr, prev float64, mode domain.YoYMode) *float64 {
	if prev == 0 {
		return nil
	}

	c := decimal.NewFromFloat(curr)
	p := decimal.NewFromFloat(prev)

	var d decimal.Decimal
	switch mode {
	case domain.YoYRelative:
		d = c.Sub(p).Div(p).Mul(hundred)
	case domain.YoYAbsolute:
		d = c.Sub(p)
	default:
		return nil
	}

	v := d.Round(ValuePrecision).InexactFloat64()
	return &v
}
