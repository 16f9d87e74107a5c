package timeseries

import (
	"fmt"
	"testing"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlySeries(startYear int, startMonth time.Month, values ...float64) []domain.Point {
	points := make([]domain.Point, len(values))
	start := time.Date(startYear, startMonth, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		points[i] = domain.Point{Date: start.AddDate(0, i, 0).Format("2006-01"), Value: v}
	}
	return points
}

func TestAnnotateYoY_ShortMonthlySeriesHasNoYoY(t *testing.T) {
	points := monthlySeries(2024, time.January, 1, 2, 3, 4, 5, 6)

	annotated := AnnotateYoY(points, domain.FrequencyMonthly, domain.YoYRelative)

	require.Len(t, annotated, 6)
	for _, p := range annotated {
		assert.Nil(t, p.YoYChange, "point %s should have no YoY", p.Date)
	}
}

func TestAnnotateYoY_ExactMonthlyMatch(t *testing.T) {
	values := make([]float64, 13)
	for i := range values {
		values[i] = 100 + float64(i)*0.5
	}
	values[12] = 110
	points := monthlySeries(2023, time.January, values...)

	annotated := AnnotateYoY(points, domain.FrequencyMonthly, domain.YoYRelative)

	last := annotated[12]
	assert.Equal(t, "2024-01", last.Date)
	require.NotNil(t, last.YoYChange)
	assert.Equal(t, 10.0, *last.YoYChange)
	for _, p := range annotated[:12] {
		assert.Nil(t, p.YoYChange)
	}
}

func TestAnnotateYoY_DoesNotMutateInput(t *testing.T) {
	points := []domain.Point{{Date: "2023", Value: 10}, {Date: "2024", Value: 12}}

	annotated := AnnotateYoY(points, domain.FrequencyAnnual, domain.YoYRelative)

	assert.Nil(t, points[1].YoYChange)
	require.NotNil(t, annotated[1].YoYChange)
	assert.Equal(t, 20.0, *annotated[1].YoYChange)
}

func TestAnnotateYoY_AbsoluteForRates(t *testing.T) {
	points := []domain.Point{
		{Date: "2022", Value: 13.9},
		{Date: "2023", Value: 33.88},
	}

	annotated := AnnotateYoY(points, domain.FrequencyAnnual, domain.YoYAbsolute)

	require.NotNil(t, annotated[1].YoYChange)
	assert.Equal(t, 19.98, *annotated[1].YoYChange)
}

func TestAnnotateYoY_GapInAnnualSeries(t *testing.T) {
	points := []domain.Point{
		{Date: "2020", Value: 5},
		{Date: "2022", Value: 8},
	}

	annotated := AnnotateYoY(points, domain.FrequencyAnnual, domain.YoYAbsolute)

	assert.Nil(t, annotated[1].YoYChange, "2021 is missing so 2022 has no YoY")
}

func TestAnnotateYoY_ZeroYearAgoIsOmitted(t *testing.T) {
	points := []domain.Point{
		{Date: "2023-05", Value: 0},
		{Date: "2024-05", Value: 7},
	}

	annotated := AnnotateYoY(points, domain.FrequencyMonthly, domain.YoYRelative)

	assert.Nil(t, annotated[1].YoYChange)
}

func TestAnnotateYoY_NoneMode(t *testing.T) {
	points := []domain.Point{{Date: "2023", Value: 10}, {Date: "2024", Value: 12}}

	annotated := AnnotateYoY(points, domain.FrequencyAnnual, domain.YoYNone)

	for _, p := range annotated {
		assert.Nil(t, p.YoYChange)
	}
}

func TestAnnotateYoY_DailyToleranceWindow(t *testing.T) {
	tests := []struct {
		name      string
		priorDate string
		wantYoY   bool
	}{
		{"exactly 365 days", "2023-03-15", true},
		{"360 days", "2023-03-20", true},
		{"370 days", "2023-03-10", true},
		{"359 days", "2023-03-21", false},
		{"371 days", "2023-03-09", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := []domain.Point{
				{Date: tt.priorDate, Value: 80},
				{Date: "2024-03-14", Value: 100},
			}

			annotated := AnnotateYoY(points, domain.FrequencyDaily, domain.YoYRelative)

			if tt.wantYoY {
				require.NotNil(t, annotated[1].YoYChange)
				assert.Equal(t, 25.0, *annotated[1].YoYChange)
			} else {
				assert.Nil(t, annotated[1].YoYChange)
			}
		})
	}
}

func TestAnnotateYoY_DailyTakesFirstMatchInWindow(t *testing.T) {
	points := []domain.Point{
		{Date: "2023-03-10", Value: 50},  // 370 days before
		{Date: "2023-03-15", Value: 100}, // 365 days before
		{Date: "2024-03-14", Value: 100},
	}

	annotated := AnnotateYoY(points, domain.FrequencyDaily, domain.YoYRelative)

	require.NotNil(t, annotated[2].YoYChange)
	assert.Equal(t, 100.0, *annotated[2].YoYChange)
}

func TestAnnotateYoY_DailyIgnoresLaterPoints(t *testing.T) {
	points := []domain.Point{
		{Date: "2023-03-15", Value: 100},
		{Date: "2024-03-14", Value: 120},
	}

	annotated := AnnotateYoY(points, domain.FrequencyDaily, domain.YoYRelative)

	assert.Nil(t, annotated[0].YoYChange, "a point a year later is not a year-ago observation")
}

func TestAnnotateYoY_DailyWeekdaySeries(t *testing.T) {
	var points []domain.Point
	day := time.Date(2022, time.January, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 600; i++ {
		d := day.AddDate(0, 0, i)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		points = append(points, domain.Point{Date: d.Format("2006-01-02"), Value: float64(100 + i)})
	}

	annotated := AnnotateYoY(points, domain.FrequencyDaily, domain.YoYAbsolute)

	withYoY := 0
	for _, p := range annotated {
		if p.YoYChange != nil {
			withYoY++
		}
	}
	assert.Greater(t, withYoY, 0)
	assert.Nil(t, annotated[0].YoYChange)
	last := annotated[len(annotated)-1]
	require.NotNil(t, last.YoYChange, fmt.Sprintf("last point %s should have YoY", last.Date))
}

func TestDelta(t *testing.T) {
	rel := Delta(110, 100, domain.YoYRelative)
	require.NotNil(t, rel)
	assert.Equal(t, 10.0, *rel)

	abs := Delta(27.5, 25.25, domain.YoYAbsolute)
	require.NotNil(t, abs)
	assert.Equal(t, 2.25, *abs)

	assert.Nil(t, Delta(10, 0, domain.YoYRelative))
	assert.Nil(t, Delta(10, 5, domain.YoYNone))
}
