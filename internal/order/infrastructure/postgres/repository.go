package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	gcdomain "github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
	"github.com/dmehra2102/bookwish-storefront/internal/order/application"
	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/outbox"
)

const orderColumns = `id, COALESCE(user_id::text, ''), customer_email, subtotal_cents, tax_cents, shipping_cents, total_cents,
	COALESCE(gift_card_code, ''), gift_card_discount_cents, gift_card_applied_cents, amount_due_cents, amount_collected_cents,
	status, payment_id, platform, item_count, shipping_address, is_gift, COALESCE(gift_message, ''),
	COALESCE(recipient_email, ''), COALESCE(tracking_number, ''), confirmed_at, ordered_at, shipped_at, delivered_at,
	cancelled_at, created_at, updated_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.CustomerEmail, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total,
		&o.GiftCardCode, &o.GiftCardDiscount, &o.GiftCardApplied, &o.AmountDue, &o.AmountCollected,
		&o.Status, &o.PaymentID, &o.Platform, &o.ItemCount, &o.ShippingAddress, &o.IsGift, &o.GiftMessage,
		&o.RecipientEmail, &o.TrackingNumber, &o.ConfirmedAt, &o.OrderedAt, &o.ShippedAt, &o.DeliveredAt,
		&o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, err
}

func (r *Repository) CreateWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders (id, user_id, customer_email, subtotal_cents, tax_cents, shipping_cents,
			total_cents, gift_card_code, gift_card_discount_cents, amount_due_cents, status, payment_id, platform,
			item_count, shipping_address, is_gift, gift_message, recipient_email, created_at, updated_at)
		VALUES ($1,NULLIF($2,'')::uuid,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11,$12,$13,$14,$15,$16,NULLIF($17,''),
			NULLIF($18,''),$19,$20)`,
		o.ID, o.UserID, o.CustomerEmail, o.Subtotal, o.Tax, o.Shipping, o.Total, o.GiftCardCode,
		o.GiftCardDiscount, o.AmountDue, o.Status, o.PaymentID, o.Platform, o.ItemCount, o.ShippingAddress,
		o.IsGift, o.GiftMessage, o.RecipientEmail, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (id, order_id, book_id, title, author, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, o.ID, item.BookID, item.Title, item.Author, item.Quantity, item.UnitPrice)
	}
	for _, g := range o.Gifts {
		batch.Queue(`INSERT INTO gifts (id, order_id, book_id, from_user_id, to_user_id, message, status, created_at)
			VALUES ($1,$2,$3,NULLIF($4,'')::uuid,NULLIF($5,'')::uuid,NULLIF($6,''),$7,$8)`,
			g.ID, o.ID, g.BookID, g.FromUserID, g.ToUserID, g.Message, g.Status, g.CreatedAt)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items and gifts: %w", err)
	}

	err = outbox.Enqueue(ctx, tx, outbox.Message{
		AggregateType: "order",
		AggregateID:   o.ID,
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

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.loadLines(ctx, r.pool, &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) loadLines(ctx context.Context, q querier, o *domain.Order) error {
	rows, err := q.Query(ctx, `SELECT id, order_id, book_id, title, author, quantity, unit_price_cents
		FROM order_items WHERE order_id=$1 ORDER BY title`, o.ID)
	if err != nil {
		return err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Item, error) {
		var it domain.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Title, &it.Author, &it.Quantity, &it.UnitPrice)
		return it, err
	})
	if err != nil {
		return err
	}
	o.Items = items

	rows, err = q.Query(ctx, `SELECT id, order_id, book_id, COALESCE(from_user_id::text, ''), COALESCE(to_user_id::text, ''),
			COALESCE(message, ''), status, created_at
		FROM gifts WHERE order_id=$1 ORDER BY created_at, id`, o.ID)
	if err != nil {
		return err
	}
	gifts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Gift, error) {
		var g domain.Gift
		err := row.Scan(&g.ID, &g.OrderID, &g.BookID, &g.FromUserID, &g.ToUserID, &g.Message, &g.Status, &g.CreatedAt)
		return g, err
	})
	if err != nil {
		return err
	}
	o.Gifts = gifts
	return nil
}

// Settle holds the order row lock, then the gift card row lock, for the whole
// settlement. Two orders sharing a card therefore redeem one after the other.
func (r *Repository) Settle(ctx context.Context, orderID string, fn application.SettleFunc) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.loadLines(ctx, tx, &o); err != nil {
		return domain.Order{}, err
	}

	var card *gcdomain.GiftCard
	if o.GiftCardCode != "" {
		var g gcdomain.GiftCard
		err := tx.QueryRow(ctx, `SELECT id, code, original_amount_cents, current_balance_cents, status, expires_at, fully_redeemed_at
			FROM gift_cards WHERE code=$1 FOR UPDATE`, o.GiftCardCode).
			Scan(&g.ID, &g.Code, &g.OriginalAmount, &g.CurrentBalance, &g.Status, &g.ExpiresAt, &g.FullyRedeemedAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			r.log.Warn("gift card on order no longer exists", "order_id", o.ID, "code", o.GiftCardCode)
		case err != nil:
			return domain.Order{}, err
		default:
			card = &g
		}
	}

	st, err := fn(o, card)
	if err != nil {
		return domain.Order{}, err
	}
	if st == nil {
		return o, tx.Commit(ctx)
	}

	if st.Card != nil {
		_, err = tx.Exec(ctx, `UPDATE gift_cards SET current_balance_cents=$2, status=$3, fully_redeemed_at=$4 WHERE id=$1`,
			st.Card.ID, st.Card.CurrentBalance, st.Card.Status, st.Card.FullyRedeemedAt)
		if err != nil {
			return domain.Order{}, fmt.Errorf("update gift card: %w", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO gift_card_redemptions (order_id, code, amount_cents, created_at) VALUES ($1,$2,$3,$4)`,
			o.ID, st.Card.Code, st.Redeemed, st.Order.UpdatedAt)
		if err != nil {
			return domain.Order{}, fmt.Errorf("record redemption: %w", err)
		}
	}

	so := st.Order
	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, confirmed_at=$3, gift_card_applied_cents=$4, amount_collected_cents=$5,
			updated_at=$6 WHERE id=$1`,
		so.ID, so.Status, so.ConfirmedAt, so.GiftCardApplied, so.AmountCollected, so.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("confirm order: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE books b SET is_purchased_gift=TRUE, gift_purchase_id=g.id
		FROM gifts g WHERE g.order_id=$1 AND b.id=g.book_id`, so.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("mark gifted books: %w", err)
	}

	err = outbox.Enqueue(ctx, tx, outbox.Message{
		AggregateType: "order",
		AggregateID:   so.ID,
		Type:          st.EventType,
		Payload:       st.Payload,
		Headers:       map[string]string{"source": "storefront-service"},
		Traceparent:   st.Traceparent,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return so, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID, traceparent string, fn application.StatusFunc) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return domain.Order{}, err
	}
	eventType, payload, err := fn(&o)
	if err != nil {
		return domain.Order{}, err
	}

	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, tracking_number=NULLIF($3,''), confirmed_at=$4, ordered_at=$5,
			shipped_at=$6, delivered_at=$7, cancelled_at=$8, updated_at=$9 WHERE id=$1`,
		o.ID, o.Status, o.TrackingNumber, o.ConfirmedAt, o.OrderedAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt, o.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}
	err = outbox.Enqueue(ctx, tx, outbox.Message{
		AggregateType: "order",
		AggregateID:   o.ID,
		Type:          eventType,
		Payload:       payload,
		Headers:       map[string]string{"source": "storefront-service"},
		Traceparent:   traceparent,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	if err := r.loadLines(ctx, r.pool, &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) List(ctx context.Context, f domain.ListFilter) ([]domain.Summary, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, shipping_address->>'first_name', shipping_address->>'last_name',
			total_cents, status, created_at, item_count
		FROM orders
		WHERE ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, f.Limit, f.Offset, string(f.Status))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Summary, error) {
		var (
			s           domain.Summary
			first, last *string
		)
		err := row.Scan(&s.ID, &first, &last, &s.TotalAmount, &s.Status, &s.CreatedAt, &s.ItemsCount)
		s.CustomerName = customerName(first, last)
		return s, err
	})
}

func customerName(first, last *string) string {
	var name string
	if first != nil {
		name = *first
	}
	if last != nil && *last != "" {
		if name != "" {
			name += " "
		}
		name += *last
	}
	if name == "" {
		return "Unknown"
	}
	return name
}
