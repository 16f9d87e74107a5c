package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	// DefaultDonationTable is the ledger table queried by the warehouse
	DefaultDonationTable = "public.payment_donation"
	// DefaultRowLimit caps the number of rows requested per aggregation
	DefaultRowLimit = 5000
)

// ledger timestamps arrive in several shapes depending on the column type
var ledgerDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// WarehouseConfig holds configuration for the SQL-over-HTTP dataset endpoint
type WarehouseConfig struct {
	URL      string
	APIKey   string
	Database int
	Table    string
}

// WarehouseLedger implements domain.DonationLedger against a native-query dataset API
type WarehouseLedger struct {
	fetcher domain.Fetcher
	cfg     WarehouseConfig
}

// Ensure WarehouseLedger implements domain.DonationLedger
var _ domain.DonationLedger = (*WarehouseLedger)(nil)

// NewWarehouseLedger creates a new WarehouseLedger
func NewWarehouseLedger(fetcher domain.Fetcher, cfg WarehouseConfig) *WarehouseLedger {
	if cfg.Table == "" {
		cfg.Table = DefaultDonationTable
	}
	return &WarehouseLedger{fetcher: fetcher, cfg: cfg}
}

type datasetRequest struct {
	Database int           `json:"database"`
	Type     string        `json:"type"`
	Native   datasetNative `json:"native"`
}

type datasetNative struct {
	Query string `json:"query"`
}

type datasetResponse struct {
	Data *struct {
		Rows *[][]json.RawMessage `json:"rows"`
	} `json:"data"`
}

// FetchRows posts a native query and decodes the positional row arrays
func (l *WarehouseLedger) FetchRows(ctx context.Context, q domain.DonationQuery) ([]domain.DonationRow, error) {
	payload, err := json.Marshal(datasetRequest{
		Database: l.cfg.Database,
		Type:     "native",
		Native:   datasetNative{Query: l.buildQuery(q)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset request: %w", err)
	}

	body, err := l.fetcher.Fetch(ctx, domain.FetchRequest{
		Method: http.MethodPost,
		URL:    l.cfg.URL,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-API-KEY":    l.cfg.APIKey,
		},
		Body: payload,
	})
	if err != nil {
		return nil, err
	}

	return DecodeDatasetRows(body)
}

// buildQuery renders the native SQL. Values come from configuration, and quotes are
// escaped so a status value cannot terminate the literal.
func (l *WarehouseLedger) buildQuery(q domain.DonationQuery) string {
	var sb strings.Builder
	sb.WriteString("SELECT id, amount_egp, amount_usd, currency, date, status FROM ")
	sb.WriteString(l.cfg.Table)

	var where []string
	if q.Status != "" {
		where = append(where, fmt.Sprintf("status = '%s'", escapeLiteral(q.Status)))
	}
	if q.Since != nil {
		where = append(where, fmt.Sprintf("date >= '%s'", q.Since.UTC().Format("2006-01-02")))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY date DESC LIMIT %d", limit))
	return sb.String()
}

// DecodeDatasetRows decodes {data: {rows: [[id, amount_egp, amount_usd, currency, date, status]]}}.
// A response without the row array is domain.ErrMalformedLedger. Rows with an
// unreadable date are skipped; unreadable amounts count as zero.
func DecodeDatasetRows(body []byte) ([]domain.DonationRow, error) {
	var resp datasetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedLedger, err)
	}
	if resp.Data == nil || resp.Data.Rows == nil {
		return nil, domain.ErrMalformedLedger
	}

	rows := make([]domain.DonationRow, 0, len(*resp.Data.Rows))
	skipped := 0
	for _, cols := range *resp.Data.Rows {
		if len(cols) < 6 {
			skipped++
			continue
		}
		date, ok := parseLedgerDate(text(cols[4]))
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, domain.DonationRow{
			ID:        text(cols[0]),
			AmountEGP: amount(cols[1]),
			AmountUSD: amount(cols[2]),
			Currency:  text(cols[3]),
			Date:      date,
			Status:    text(cols[5]),
		})
	}

	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Int("kept", len(rows)).Msg("Skipped malformed ledger rows")
	}
	return rows, nil
}

func parseLedgerDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range ledgerDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// text returns a JSON scalar as a string; null becomes ""
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	return string(raw)
}

func amount(raw json.RawMessage) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(text(raw)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
