package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

const signalColumns = `
	id, channel_username, telegram_message_id, message_text, ticker, signal_type,
	entry_price::text, target_price::text, stop_loss::text,
	risk_level, category, message_date, created_at`

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	db DBTX
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{db: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// InsertIgnore adds a signal unless (channel_username, telegram_message_id) exists.
// Returns ErrNotFound if the channel is not registered.
func (s *SignalStore) InsertIgnore(ctx context.Context, sig *domain.Signal) (bool, error) {
	if sig == nil || sig.ChannelUsername == "" {
		return false, storage.ErrInvalidInput
	}

	risk, category := sig.RiskLevel, sig.Category
	if risk == "" {
		risk = domain.DefaultRiskLevel
	}
	if category == "" {
		category = domain.DefaultCategory
	}

	query := `
		INSERT INTO investment_signals (
			channel_username, telegram_message_id, message_text, ticker, signal_type,
			entry_price, target_price, stop_loss, risk_level, category, message_date
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11)
		ON CONFLICT (channel_username, telegram_message_id) DO NOTHING
		RETURNING id, created_at
	`

	err := s.db.QueryRow(ctx, query,
		sig.ChannelUsername,
		sig.MessageID,
		sig.MessageText,
		nullString(sig.Ticker),
		nullString(string(sig.Direction)),
		decimalParam(sig.EntryPrice),
		decimalParam(sig.TargetPrice),
		decimalParam(sig.StopLoss),
		string(risk),
		string(category),
		sig.MessageDate,
	).Scan(&sig.ID, &sig.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			// Conflict: the row already exists.
			return false, nil
		}
		if isForeignKeyError(err) {
			return false, fmt.Errorf("insert signal for channel %q: %w", sig.ChannelUsername, storage.ErrNotFound)
		}
		return false, fmt.Errorf("insert signal: %w", err)
	}

	sig.RiskLevel, sig.Category = risk, category
	return true, nil
}

// List retrieves signals matching the filter, newest created first.
func (s *SignalStore) List(ctx context.Context, filter storage.SignalFilter) ([]*domain.Signal, error) {
	if filter.Limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	var (
		where []string
		args  []any
	)
	if filter.Ticker != "" {
		args = append(args, "%"+escapeLike(filter.Ticker)+"%")
		where = append(where, fmt.Sprintf("ticker ILIKE $%d", len(args)))
	}
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		where = append(where, fmt.Sprintf("channel_username = $%d", len(args)))
	}
	args = append(args, filter.Limit)

	query := `SELECT ` + signalColumns + ` FROM investment_signals`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// Delete removes a signal by ID. A missing ID is not an error.
func (s *SignalStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM investment_signals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete signal: %w", err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so the filter is a literal substring.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var (
		sig                 domain.Signal
		ticker, direction   *string
		entry, target, stop *string
		riskLevel, category string
	)

	err := row.Scan(
		&sig.ID,
		&sig.ChannelUsername,
		&sig.MessageID,
		&sig.MessageText,
		&ticker,
		&direction,
		&entry,
		&target,
		&stop,
		&riskLevel,
		&category,
		&sig.MessageDate,
		&sig.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ticker != nil {
		sig.Ticker = *ticker
	}
	if direction != nil {
		sig.Direction = domain.Direction(*direction)
	}
	sig.RiskLevel = domain.RiskLevel(riskLevel)
	sig.Category = domain.Category(category)

	if sig.EntryPrice, err = parseDecimal(entry); err != nil {
		return nil, err
	}
	if sig.TargetPrice, err = parseDecimal(target); err != nil {
		return nil, err
	}
	if sig.StopLoss, err = parseDecimal(stop); err != nil {
		return nil, err
	}

	return &sig, nil
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	signals := []*domain.Signal{}

	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
