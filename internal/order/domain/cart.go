package domain

import (
	"github.com/google/uuid"

	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

var (
	ErrAlreadyInCart   = apperr.Conflict("Already in cart")
	ErrNotPurchasable  = apperr.Validation("Book is not available for purchase")
	ErrInvalidQuantity = apperr.Validation("Quantity must be between 1 and 10")
	ErrInvalidBookID   = apperr.Validation("Invalid book id")
)

// MaxQuantity bounds one cart line; a wishlist asks for a book, not a pallet.
const MaxQuantity = 10

// CatalogBook is a wishlist book as the checkout prices it.
type CatalogBook struct {
	ID      string
	OwnerID string
	Title   string
	Author  string
	Price   money.Cents
}

type Line struct {
	BookID    string      `json:"book_id"`
	OwnerID   string      `json:"-"`
	Title     string      `json:"title"`
	Author    string      `json:"author"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Cents `json:"unit_price"`
}

func (l Line) Amount() money.Cents {
	return l.UnitPrice * money.Cents(l.Quantity)
}

// CartItem is what a client asks to buy.
type CartItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// Cart holds at most one line per book.
type Cart struct {
	lines []Line
}

func (c *Cart) Add(b CatalogBook, quantity int) error {
	if quantity < 1 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if b.Price <= 0 {
		return ErrNotPurchasable
	}
	for _, l := range c.lines {
		if l.BookID == b.ID {
			return ErrAlreadyInCart
		}
	}
	c.lines = append(c.lines, Line{
		BookID:    b.ID,
		OwnerID:   b.OwnerID,
		Title:     b.Title,
		Author:    b.Author,
		Quantity:  quantity,
		UnitPrice: b.Price,
	})
	return nil
}

func (c *Cart) Remove(bookID string) {
	for i, l := range c.lines {
		if l.BookID == bookID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

func (c *Cart) Subtotal() money.Cents {
	var sum money.Cents
	for _, l := range c.lines {
		sum += l.Amount()
	}
	return sum
}

// BookIDs validates the requested items and returns their ids in order.
func BookIDs(items []CartItem) ([]string, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, err := uuid.Parse(it.BookID); err != nil {
			return nil, ErrInvalidBookID
		}
		ids = append(ids, it.BookID)
	}
	return ids, nil
}
