package parser

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/util"
)

var jsonNull = []byte("null")

// ParseWorldBank parses the World Bank indicator envelope [metadata, [{date, value}]]
func ParseWorldBank(body []byte) ([]domain.RawPoint, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed("world bank", "expected [metadata, data] array")
	}
	if len(envelope) < 2 {
		return nil, malformed("world bank", "expected [metadata, data] array")
	}

	data := bytes.TrimSpace(envelope[1])
	if len(data) == 0 || data[0] != '[' {
		return nil, malformed("world bank", "no data array")
	}

	var items []struct {
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, malformed("world bank", err.Error())
	}

	points := make([]domain.RawPoint, 0, len(items))
	for _, item := range items {
		if item.Date == "" || item.Value == nil || !isFinite(*item.Value) {
			continue
		}
		points = append(points, domain.RawPoint{Date: item.Date, Value: *item.Value})
	}
	return points, nil
}

// ParseYahooChart parses chart.result[0].{timestamp[], indicators.quote[0].close[]}.
// Timestamps become UTC calendar days.
func ParseYahooChart(body []byte) ([]domain.RawPoint, error) {
	var envelope struct {
		Chart *struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed("yahoo finance", err.Error())
	}
	if envelope.Chart == nil || len(envelope.Chart.Result) == 0 {
		return nil, malformed("yahoo finance", "missing chart.result")
	}
	result := envelope.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, malformed("yahoo finance", "missing indicators.quote")
	}

	closes := result.Indicators.Quote[0].Close
	n := len(result.Timestamp)
	if len(closes) < n {
		n = len(closes)
	}

	points := make([]domain.RawPoint, 0, n)
	for i := 0; i < n; i++ {
		c := closes[i]
		if c == nil || !isFinite(*c) {
			continue
		}
		day := util.DayKey(time.Unix(result.Timestamp[i], 0).UTC())
		points = append(points, domain.RawPoint{Date: day, Value: *c})
	}
	return points, nil
}

// ParseIMFDataMapper parses {values: {SERIES: {COUNTRY: {year: value}}}}.
// Years are returned in ascending order since JSON objects carry none.
func ParseIMFDataMapper(body []byte, series, country string) ([]domain.RawPoint, error) {
	var envelope struct {
		Values map[string]map[string]map[string]*float64 `json:"values"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed("imf", err.Error())
	}
	bySeries, ok := envelope.Values[series]
	if !ok {
		return nil, malformed("imf", "missing series "+series)
	}
	byYear, ok := bySeries[country]
	if !ok {
		return nil, malformed("imf", "missing country "+country)
	}

	years := make([]string, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Strings(years)

	points := make([]domain.RawPoint, 0, len(years))
	for _, year := range years {
		v := byYear[year]
		if year == "" || v == nil || !isFinite(*v) {
			continue
		}
		points = append(points, domain.RawPoint{Date: year, Value: *v})
	}
	return points, nil
}

// ParseUNHCR parses {data: [{year, individuals}]}. Both fields may arrive as
// numbers or strings.
func ParseUNHCR(body []byte) ([]domain.RawPoint, error) {
	var envelope struct {
		Data *[]struct {
			Year        json.RawMessage `json:"year"`
			Individuals json.RawMessage `json:"individuals"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed("unhcr", err.Error())
	}
	if envelope.Data == nil {
		return nil, malformed("unhcr", "missing data array")
	}

	points := make([]domain.RawPoint, 0, len(*envelope.Data))
	for _, item := range *envelope.Data {
		year, ok := scalarText(item.Year)
		if !ok || year == "" {
			continue
		}
		text, ok := scalarText(item.Individuals)
		if !ok {
			continue
		}
		value, ok := parseValue(text)
		if !ok {
			continue
		}
		points = append(points, domain.RawPoint{Date: year, Value: value})
	}
	return points, nil
}

// ParseExchangeRate parses {rates: {SYM: rate}} and appends the live rate at the
// current month to the curated history. A history point in the current month is
// replaced by the live rate.
func ParseExchangeRate(body []byte, symbol string, history []domain.RawPoint, now time.Time) ([]domain.RawPoint, error) {
	var envelope struct {
		Rates map[string]*float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed("exchange rate", err.Error())
	}
	if envelope.Rates == nil {
		return nil, malformed("exchange rate", "missing rates")
	}
	rate, ok := envelope.Rates[symbol]
	if !ok || rate == nil || !isFinite(*rate) {
		return nil, domain.ErrSymbolNotFound
	}

	current := util.MonthKey(now.UTC())
	points := make([]domain.RawPoint, 0, len(history)+1)
	for _, p := range history {
		if strings.HasPrefix(p.Date, current) {
			continue
		}
		points = append(points, p)
	}
	points = append(points, domain.RawPoint{Date: current, Value: *rate})
	return points, nil
}

// scalarText returns a JSON string or number as text
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n.String(), true
}
