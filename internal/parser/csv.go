package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ParseCSV parses DATE,VALUE text. The header line is discarded and rows with an
// empty date, an empty value, the "." sentinel or a non-numeric value are dropped.
func ParseCSV(body []byte) ([]domain.RawPoint, error) {
	records, err := readRecords(body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []domain.RawPoint{}, nil
	}

	points := make([]domain.RawPoint, 0, len(records)-1)
	dropped := 0
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			dropped++
			continue
		}
		date := strings.TrimSpace(rec[0])
		value, ok := parseValue(rec[1])
		if date == "" || !ok {
			dropped++
			continue
		}
		points = append(points, domain.RawPoint{Date: date, Value: value})
	}

	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Int("kept", len(points)).Msg("Dropped malformed CSV rows")
	}
	return points, nil
}

// ParseEntityCSV parses a grapher-style CSV (Entity,Code,Year,<value column>) and keeps
// the rows of one entity. The value column is the first header containing valueColumn.
func ParseEntityCSV(body []byte, entity, valueColumn string) ([]domain.RawPoint, error) {
	records, err := readRecords(body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, malformed("csv", "missing header")
	}

	header := records[0]
	entityIdx, yearIdx, valueIdx := -1, -1, -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == "Entity":
			entityIdx = i
		case h == "Year":
			yearIdx = i
		case valueIdx == -1 && strings.Contains(h, valueColumn):
			valueIdx = i
		}
	}
	if entityIdx == -1 || yearIdx == -1 || valueIdx == -1 {
		return nil, malformed("csv", "missing Entity, Year or value column")
	}

	points := make([]domain.RawPoint, 0)
	for _, rec := range records[1:] {
		if len(rec) <= entityIdx || len(rec) <= yearIdx || len(rec) <= valueIdx {
			continue
		}
		if rec[entityIdx] != entity {
			continue
		}
		year := strings.TrimSpace(rec[yearIdx])
		value, ok := parseValue(rec[valueIdx])
		if year == "" || !ok {
			continue
		}
		points = append(points, domain.RawPoint{Date: year, Value: value})
	}
	return points, nil
}

// readRecords reads all CSV records, skipping individual lines that fail to parse
func readRecords(body []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimSpace(body)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.Debug().Err(err).Msg("Skipping unreadable CSV line")
				continue
			}
			return nil, malformed("csv", err.Error())
		}
		records = append(records, rec)
	}
	return records, nil
}
