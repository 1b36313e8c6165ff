package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/bookwish-storefront/internal/giftcard/domain"
)

const issueAttempts = 3

type Service struct {
	repo    GiftCardRepository
	now     func() time.Time
	newCode func() (string, error)
}

func NewService(repo GiftCardRepository) *Service {
	return &Service{repo: repo, now: time.Now, newCode: domain.GenerateCode}
}

// Check reports whether code can currently pay for an order. It has no side effects.
func (s *Service) Check(ctx context.Context, code string) (domain.CheckResult, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.CheckResult{}, domain.ErrCodeRequired
	}
	g, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Check(nil, s.now()), nil
	}
	if err != nil {
		return domain.CheckResult{}, err
	}
	return domain.Check(&g, s.now()), nil
}

// Issue creates an active card with a fresh code and queues a GiftCardIssued event.
func (s *Service) Issue(ctx context.Context, p domain.IssueParams, traceparent string) (domain.GiftCard, error) {
	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return domain.GiftCard{}, err
		}
		g, err := domain.New(uuid.NewString(), code, p, s.now())
		if err != nil {
			return domain.GiftCard{}, err
		}
		payload, err := json.Marshal(domain.GiftCardIssued{
			Code:           g.Code,
			Amount:         g.OriginalAmount,
			RecipientEmail: g.RecipientEmail,
			Message:        g.Message,
		})
		if err != nil {
			return domain.GiftCard{}, err
		}
		err = s.repo.CreateWithOutbox(ctx, g, domain.EventGiftCardIssued, payload, traceparent)
		if errors.Is(err, domain.ErrCodeTaken) && attempt < issueAttempts {
			continue
		}
		if err != nil {
			return domain.GiftCard{}, err
		}
		return g, nil
	}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.GiftCard, error) {
	return s.repo.List(ctx, limit, offset)
}
