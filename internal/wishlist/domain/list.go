package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/bookwish-storefront/pkg/apperr"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

const BookStatusWant = "want"

var (
	ErrListNotFound  = apperr.NotFound("List not found")
	ErrOwnerNotFound = apperr.NotFound("User not found")
)

type ShareableList struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	ShareCode    string     `json:"share_code"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	IsPublic     bool       `json:"is_public"`
	ViewCount    int64      `json:"view_count"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Owner struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type Book struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	Title           string       `json:"title"`
	Author          string       `json:"author"`
	ISBN            string       `json:"isbn,omitempty"`
	ISBN13          string       `json:"isbn13,omitempty"`
	CoverURL        string       `json:"cover_url,omitempty"`
	ThumbnailURL    string       `json:"thumbnail_url,omitempty"`
	Description     string       `json:"description,omitempty"`
	Status          string       `json:"status"`
	Priority        *int         `json:"priority,omitempty"`
	ListPrice       *money.Cents `json:"list_price,omitempty"`
	CurrencyCode    string       `json:"currency_code"`
	IsPurchasedGift bool         `json:"is_purchased_gift"`
	GiftPurchaseID  string       `json:"gift_purchase_id,omitempty"`
	DateAdded       time.Time    `json:"date_added"`
}

// Purchasable reports whether the book is still wanted, not yet gifted and
// carries a positive list price.
func (b Book) Purchasable() bool {
	return b.Status == BookStatusWant && !b.IsPurchasedGift && b.ListPrice != nil && *b.ListPrice > 0
}

// View is what a visitor sees behind a share code.
type View struct {
	List  ShareableList `json:"list"`
	Books []Book        `json:"books"`
	Owner Owner         `json:"user"`
}

func NormalizeShareCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
