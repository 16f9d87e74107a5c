package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const defaultRowLimit = 5000

// DonationRepository implements domain.DonationLedger by reading the payment_donation table directly
type DonationRepository struct {
	pool *pgxpool.Pool
}

// Ensure DonationRepository implements domain.DonationLedger
var _ domain.DonationLedger = (*DonationRepository)(nil)

// NewDonationRepository creates a new DonationRepository
func NewDonationRepository(pool *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{pool: pool}
}

type donationRecord struct {
	ID        string
	AmountEGP string
	AmountUSD string
	Currency  string
	Date      time.Time
	Status    string
}

// FetchRows reads donation rows, newest first
func (r *DonationRepository) FetchRows(ctx context.Context, q domain.DonationQuery) ([]domain.DonationRow, error) {
	sql, args := buildDonationQuery(q)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[donationRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to read donations: %w", err)
	}

	result := make([]domain.DonationRow, 0, len(records))
	for _, rec := range records {
		result = append(result, domain.DonationRow{
			ID:        rec.ID,
			AmountEGP: numericTextToDecimal(rec.AmountEGP),
			AmountUSD: numericTextToDecimal(rec.AmountUSD),
			Currency:  rec.Currency,
			Date:      rec.Date,
			Status:    rec.Status,
		})
	}
	return result, nil
}

// buildDonationQuery renders the parameterized select for a query
func buildDonationQuery(q domain.DonationQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT id::text, COALESCE(amount_egp, 0)::text, COALESCE(amount_usd, 0)::text,
		COALESCE(currency, ''), date, COALESCE(status, '')
		FROM public.payment_donation`)

	var where []string
	var args []any
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.Since != nil {
		args = append(args, *q.Since)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultRowLimit
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY date DESC LIMIT $%d", len(args)))

	return sb.String(), args
}

func numericTextToDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
