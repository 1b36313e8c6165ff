package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wldomain "github.com/dmehra2102/bookwish-storefront/internal/wishlist/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

type books map[string]wldomain.Book

func (b books) PricesFor(ctx context.Context, ids []string) (map[string]wldomain.Book, error) {
	return b, nil
}

func TestPricesForSkipsUnpriced(t *testing.T) {
	price := money.MustDollars("9.99")
	w := NewWishlist(books{
		"b1": {ID: "b1", UserID: "u1", Title: "Emma", Author: "Austen", Status: wldomain.BookStatusWant, ListPrice: &price},
		"b2": {ID: "b2", UserID: "u1", Title: "No price", Status: wldomain.BookStatusWant},
		"b3": {ID: "b3", UserID: "u1", Title: "Gifted", Status: wldomain.BookStatusWant, ListPrice: &price, IsPurchasedGift: true},
	})

	got, err := w.PricesFor(context.Background(), []string{"b1", "b2", "b3"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got["b1"].OwnerID)
	assert.Equal(t, price, got["b1"].Price)
}
