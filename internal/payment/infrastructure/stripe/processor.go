package stripe

import (
	"context"
	"log/slog"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/dmehra2102/bookwish-storefront/internal/payment/domain"
	"github.com/dmehra2102/bookwish-storefront/pkg/money"
)

const metadataOrderID = "order_id"

type Processor struct {
	log    *slog.Logger
	client paymentintent.Client
}

// NewProcessor talks to Stripe with secretKey. A nil backend uses the public API.
func NewProcessor(log *slog.Logger, secretKey string, backend stripego.Backend) *Processor {
	if backend == nil {
		backend = stripego.GetBackend(stripego.APIBackend)
	}
	return &Processor{
		log:    log,
		client: paymentintent.Client{B: backend, Key: secretKey},
	}
}

func (p *Processor) CreateIntent(ctx context.Context, in domain.IntentParams) (domain.Intent, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(int64(in.Amount)),
		Currency: stripego.String(string(stripego.CurrencyUSD)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	if in.CustomerEmail != "" {
		params.ReceiptEmail = stripego.String(in.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, in.OrderID)
	params.SetIdempotencyKey("order-" + in.OrderID)

	pi, err := p.client.New(params)
	if err != nil {
		return domain.Intent{}, err
	}
	return toIntent(pi), nil
}

func (p *Processor) Retrieve(ctx context.Context, intentID string) (domain.Intent, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.client.Get(intentID, params)
	if err != nil {
		return domain.Intent{}, err
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripego.PaymentIntent) domain.Intent {
	return domain.Intent{
		ID:           pi.ID,
		OrderID:      pi.Metadata[metadataOrderID],
		Amount:       money.Cents(pi.Amount),
		Received:     money.Cents(pi.AmountReceived),
		Currency:     string(pi.Currency),
		Status:       domain.IntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
}
