package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/outbox"
)

const giftCardColumns = `id, code, original_amount_cents, current_balance_cents, currency, recipient_email,
	COALESCE(message, ''), issued_by, status, expires_at, created_at, fully_redeemed_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func scanGiftCard(row pgx.Row) (domain.GiftCard, error) {
	var g domain.GiftCard
	err := row.Scan(&g.ID, &g.Code, &g.OriginalAmount, &g.CurrentBalance, &g.Currency, &g.RecipientEmail,
		&g.Message, &g.IssuedBy, &g.Status, &g.ExpiresAt, &g.CreatedAt, &g.FullyRedeemedAt)
	return g, err
}

func (r *Repository) FindByCode(ctx context.Context, code string) (domain.GiftCard, error) {
	g, err := scanGiftCard(r.pool.QueryRow(ctx, `SELECT `+giftCardColumns+` FROM gift_cards WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GiftCard{}, domain.ErrNotFound
	}
	return g, err
}

func (r *Repository) CreateWithOutbox(ctx context.Context, g domain.GiftCard, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO gift_cards (id, code, original_amount_cents, current_balance_cents, currency,
			recipient_email, message, issued_by, status, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9,$10,$11)`,
		g.ID, g.Code, g.OriginalAmount, g.CurrentBalance, g.Currency, g.RecipientEmail, g.Message, g.IssuedBy,
		g.Status, g.ExpiresAt, g.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrCodeTaken
	}
	if err != nil {
		return err
	}

	err = outbox.Enqueue(ctx, tx, outbox.Message{
		AggregateType: "gift_card",
		AggregateID:   g.Code,
		Type:          eventType,
		Payload:       payload,
		Headers:       map[string]string{"source": "storefront-service"},
		Traceparent:   traceparent,
	})
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]domain.GiftCard, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+giftCardColumns+` FROM gift_cards ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []domain.GiftCard{}
	for rows.Next() {
		g, err := scanGiftCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, g)
	}
	return cards, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
