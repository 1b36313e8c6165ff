package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/bookwish-storefront/internal/wishlist/domain"
)

const bookColumns = `id, user_id, title, author, COALESCE(isbn, ''), COALESCE(isbn13, ''),
	COALESCE(cover_url, ''), COALESCE(thumbnail_url, ''), COALESCE(description, ''), status, priority,
	list_price_cents, currency_code, is_purchased_gift, COALESCE(gift_purchase_id::text, ''), date_added`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindPublicList(ctx context.Context, shareCode string) (domain.ShareableList, error) {
	var l domain.ShareableList
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, share_code, title, COALESCE(description, ''), is_public,
			view_count, last_viewed_at, created_at, updated_at
		FROM shareable_lists WHERE share_code=$1 AND is_public`, shareCode).
		Scan(&l.ID, &l.UserID, &l.ShareCode, &l.Title, &l.Description, &l.IsPublic,
			&l.ViewCount, &l.LastViewedAt, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ShareableList{}, domain.ErrListNotFound
	}
	return l, err
}

func (r *Repository) FindOwner(ctx context.Context, userID string) (domain.Owner, error) {
	var o domain.Owner
	err := r.pool.QueryRow(ctx, `SELECT id, username, display_name, COALESCE(avatar_url, '') FROM users WHERE id=$1`, userID).
		Scan(&o.ID, &o.Username, &o.DisplayName, &o.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Owner{}, domain.ErrOwnerNotFound
	}
	return o, err
}

func (r *Repository) WantedBooks(ctx context.Context, userID string) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bookColumns+` FROM books
		WHERE user_id=$1 AND status=$2
		ORDER BY priority ASC NULLS LAST, date_added DESC`, userID, domain.BookStatusWant)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

// IncrementViews bumps the counter in place so concurrent views are not lost.
func (r *Repository) IncrementViews(ctx context.Context, listID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE shareable_lists SET view_count = view_count + 1, last_viewed_at=$2 WHERE id=$1`, listID, at)
	return err
}

// BooksByID returns the wanted, not yet gifted books among ids whose owner
// shares a public list.
func (r *Repository) BooksByID(ctx context.Context, ids []string) ([]domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+bookColumns+` FROM books b
		WHERE b.id = ANY($1::uuid[]) AND b.status = $2 AND NOT b.is_purchased_gift
		  AND EXISTS (SELECT 1 FROM shareable_lists l WHERE l.user_id = b.user_id AND l.is_public)`,
		ids, domain.BookStatusWant)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

func collectBooks(rows pgx.Rows) ([]domain.Book, error) {
	defer rows.Close()
	var books []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.Author, &b.ISBN, &b.ISBN13,
			&b.CoverURL, &b.ThumbnailURL, &b.Description, &b.Status, &b.Priority,
			&b.ListPrice, &b.CurrencyCode, &b.IsPurchasedGift, &b.GiftPurchaseID, &b.DateAdded); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
