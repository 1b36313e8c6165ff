package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/bookwish-storefront/internal/wishlist/domain"
)

type Service struct {
	log  *slog.Logger
	repo ListRepository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo ListRepository) *Service {
	return &Service{log: log, repo: repo, now: time.Now}
}

// Lookup resolves a share code to the list, its owner and the books still wanted.
// The view counter is bumped on every successful lookup.
func (s *Service) Lookup(ctx context.Context, shareCode string) (domain.View, error) {
	code := domain.NormalizeShareCode(shareCode)
	if code == "" {
		return domain.View{}, domain.ErrListNotFound
	}

	list, err := s.repo.FindPublicList(ctx, code)
	if err != nil {
		return domain.View{}, err
	}
	owner, err := s.repo.FindOwner(ctx, list.UserID)
	if err != nil {
		return domain.View{}, err
	}
	books, err := s.repo.WantedBooks(ctx, list.UserID)
	if err != nil {
		return domain.View{}, fmt.Errorf("fetch books: %w", err)
	}
	if books == nil {
		books = []domain.Book{}
	}

	if err := s.repo.IncrementViews(ctx, list.ID, s.now().UTC()); err != nil {
		s.log.Warn("view count update failed", "list_id", list.ID, "err", err)
	}

	return domain.View{List: list, Books: books, Owner: owner}, nil
}

// PricesFor returns the catalog entries for ids keyed by book id.
// Unknown ids are absent from the result.
func (s *Service) PricesFor(ctx context.Context, ids []string) (map[string]domain.Book, error) {
	books, err := s.repo.BooksByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Book, len(books))
	for _, b := range books {
		out[b.ID] = b
	}
	return out, nil
}
