package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/bookwish-storefront/internal/admin/domain"
)

type StatsRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStatsRepository(log *slog.Logger, pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{log: log, pool: pool}
}

func (r *StatsRepository) Stats(ctx context.Context) (domain.Stats, error) {
	var st domain.Stats
	err := r.pool.QueryRow(ctx, `SELECT
			count(*),
			COALESCE(sum(amount_collected_cents) FILTER (WHERE confirmed_at IS NOT NULL), 0)::bigint,
			COALESCE(sum(gift_card_applied_cents) FILTER (WHERE confirmed_at IS NOT NULL), 0)::bigint,
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'confirmed'),
			count(*) FILTER (WHERE status = 'delivered')
		FROM orders`).
		Scan(&st.TotalOrders, &st.CardRevenue, &st.GiftCardRevenue, &st.PendingOrders, &st.ConfirmedOrders, &st.DeliveredOrders)
	if err != nil {
		return domain.Stats{}, err
	}

	err = r.pool.QueryRow(ctx, `SELECT
			count(*),
			count(*) FILTER (WHERE current_balance_cents < original_amount_cents),
			COALESCE(sum(current_balance_cents) FILTER (WHERE status = 'active'), 0)::bigint
		FROM gift_cards`).
		Scan(&st.GiftCardsIssued, &st.GiftCardsRedeemed, &st.OutstandingCredit)
	if err != nil {
		return domain.Stats{}, err
	}
	return st, nil
}
