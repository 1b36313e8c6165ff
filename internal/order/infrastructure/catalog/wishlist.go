package catalog

import (
	"context"

	"github.com/dmehra2102/bookwish-storefront/internal/order/domain"
	wldomain "github.com/dmehra2102/bookwish-storefront/internal/wishlist/domain"
)

type BookSource interface {
	PricesFor(ctx context.Context, ids []string) (map[string]wldomain.Book, error)
}

// Wishlist prices checkout lines from the books on users' wishlists.
type Wishlist struct {
	books BookSource
}

func NewWishlist(books BookSource) *Wishlist {
	return &Wishlist{books: books}
}

// PricesFor leaves out books that cannot be bought, already gifted ones included.
func (w *Wishlist) PricesFor(ctx context.Context, ids []string) (map[string]domain.CatalogBook, error) {
	books, err := w.books.PricesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.CatalogBook, len(books))
	for id, b := range books {
		if !b.Purchasable() {
			continue
		}
		out[id] = domain.CatalogBook{
			ID:      b.ID,
			OwnerID: b.UserID,
			Title:   b.Title,
			Author:  b.Author,
			Price:   *b.ListPrice,
		}
	}
	return out, nil
}
