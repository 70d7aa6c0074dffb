package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/user"
)

// SecretFetcher obtains a client secret authorizing a charge of amount minor
// units.
type SecretFetcher interface {
	FetchClientSecret(ctx context.Context, amount int64) (string, error)
}

// Config holds checkout behaviour switches.
type Config struct {
	// RequireCompleteCard rejects submissions while the card element is
	// empty or reports a validation error.
	RequireCompleteCard bool
	// OrdersPath is the redirect target after a successful order.
	OrdersPath string
	// CurrencySymbol prefixes the rendered order total.
	CurrencySymbol string
}

// Outcome is the result of a successful submission.
type Outcome struct {
	Form     Form
	Order    *order.Record
	Redirect string
}

// Service drives the checkout page: it renders the basket summary, keeps a
// client secret in step with the basket, confirms payments and writes orders.
type Service struct {
	cfg      Config
	baskets  basket.Store
	secrets  SecretFetcher
	payments payment.Provider
	orders   *order.Service
	sessions *Sessions
	metrics  *metrics
}

// Option configures a Service.
type Option func(*options)

type options struct {
	meter metric.Meter
}

// WithMeter sets the meter used for checkout counters.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// NewService creates a checkout Service with the required dependencies.
func NewService(
	cfg Config,
	baskets basket.Store,
	secrets SecretFetcher,
	payments payment.Provider,
	orders *order.Service,
	sessions *Sessions,
	opts ...Option,
) (*Service, error) {
	o := options{meter: noop.NewMeterProvider().Meter("checkout")}
	for _, opt := range opts {
		opt(&o)
	}
	m, err := newMetrics(o.meter)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}
	if cfg.OrdersPath == "" {
		cfg.OrdersPath = "/orders"
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = "$"
	}
	return &Service{
		cfg:      cfg,
		baskets:  baskets,
		secrets:  secrets,
		payments: payments,
		orders:   orders,
		sessions: sessions,
		metrics:  m,
	}, nil
}

// View loads the basket and renders the checkout page, fetching a new client
// secret when the basket changed since the last one was issued.
func (s *Service) View(ctx context.Context, u user.User) (*View, error) {
	b, err := s.baskets.Get(ctx, u.UID)
	if err != nil {
		return nil, errors.Wrap(err, "get basket")
	}

	form := s.refresh(ctx, u.UID, b)
	total := basket.Total(b)

	return &View{
		ItemCount: b.Len(),
		Email:     u.Email,
		Items:     b.Snapshot(),
		Total:     total,
		TotalText: s.FormatAmount(total),
		Form:      form,
	}, nil
}

// FormatAmount renders a major-unit amount in the configured currency.
func (s *Service) FormatAmount(amount decimal.Decimal) string {
	return FormatAmount(s.cfg.CurrencySymbol, amount)
}

// Refresh brings the client secret in step with the current basket and
// returns the resulting form state.
func (s *Service) Refresh(ctx context.Context, u user.User) (Form, error) {
	b, err := s.baskets.Get(ctx, u.UID)
	if err != nil {
		return Form{}, errors.Wrap(err, "get basket")
	}
	return s.refresh(ctx, u.UID, b), nil
}

// refresh requests a client secret for basket b unless one was already
// issued (or is being fetched) for b's version.
func (s *Service) refresh(ctx context.Context, uid string, b basket.Basket) Form {
	sess := s.sessions.get(uid)

	sess.mu.Lock()
	switch {
	case sess.state == StateProcessing:
		f := sess.form()
		sess.mu.Unlock()
		return f
	case sess.state == StateFetching && sess.fetchVersion == b.Version:
		f := sess.form()
		sess.mu.Unlock()
		return f
	case sess.hasSecret && sess.secretVersion == b.Version:
		f := sess.form()
		sess.mu.Unlock()
		return f
	case sess.state == StateSucceeded && b.IsEmpty():
		// The order was placed and the basket emptied: keep showing success
		// until the shopper adds something new.
		f := sess.form()
		sess.mu.Unlock()
		return f
	}

	if sess.state == StateSucceeded {
		sess.reset()
	}
	if b.IsEmpty() {
		sess.clientSecret = ""
		sess.hasSecret = false
		if sess.confirmed == nil {
			sess.state = StateIdle
		}
		f := sess.form()
		sess.mu.Unlock()
		return f
	}

	sess.state = StateFetching
	sess.fetchVersion = b.Version
	sess.mu.Unlock()

	amount := basket.MinorUnits(basket.Total(b))
	secret, err := s.secrets.FetchClientSecret(ctx, amount)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != StateFetching || sess.fetchVersion != b.Version {
		// A newer basket version took over while this request was in flight.
		record(ctx, s.metrics.secretFetches, "stale")
		return sess.form()
	}
	if err != nil {
		record(ctx, s.metrics.secretFetches, "error")
		zctx.From(ctx).Warn("Client secret fetch failed",
			zap.String("uid", uid),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		sess.state = StateFailed
		sess.errMsg = msgSecretUnavailable
		sess.hasSecret = false
		return sess.form()
	}

	record(ctx, s.metrics.secretFetches, "ok")
	sess.clientSecret = secret
	sess.hasSecret = true
	sess.secretVersion = b.Version
	sess.state = StateReady
	if sess.errMsg == msgSecretUnavailable {
		sess.errMsg = ""
	}
	return sess.form()
}

// CardChange applies a card element change event: the form is disabled
// while the card is empty, and the error text mirrors the provider's message.
func (s *Service) CardChange(_ context.Context, u user.User, ev CardEvent) Form {
	sess := s.sessions.get(u.UID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.cardEmpty = ev.Empty
	sess.cardComplete = ev.Complete
	sess.cardInvalid = ev.Error != ""
	sess.errMsg = ev.Error
	return sess.form()
}

// Form returns the shopper's current form state without side effects.
func (s *Service) Form(u user.User) Form {
	sess := s.sessions.get(u.UID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.form()
}

// Submit confirms the payment with the held client secret and, once the
// provider reports it succeeded, writes the order and clears the paid items
// from the basket.
//
// An order is written only for an intent the provider confirmed. When the
// write fails the confirmed intent is kept and the next Submit retries the
// write without confirming again.
func (s *Service) Submit(ctx context.Context, u user.User, method payment.Method) (*Outcome, error) {
	sess := s.sessions.get(u.UID)

	// Fast path: a confirmed payment is waiting for its order write.
	sess.mu.Lock()
	if sess.state == StateProcessing {
		sess.mu.Unlock()
		return nil, ErrAlreadyProcessing
	}
	if sess.confirmed != nil {
		return s.retryWrite(ctx, u, sess)
	}
	sess.mu.Unlock()

	if method.ID == "" {
		return nil, payment.ErrMissingPaymentMethod
	}

	b, err := s.baskets.Get(ctx, u.UID)
	if err != nil {
		return nil, errors.Wrap(err, "get basket")
	}

	sess.mu.Lock()
	switch {
	case sess.state == StateProcessing:
		sess.mu.Unlock()
		return nil, ErrAlreadyProcessing
	case sess.confirmed != nil:
		// A concurrent attempt confirmed and failed its write meanwhile.
		return s.retryWrite(ctx, u, sess)
	case b.IsEmpty():
		sess.mu.Unlock()
		return nil, ErrEmptyBasket
	case !sess.hasSecret:
		sess.mu.Unlock()
		return nil, ErrNoClientSecret
	case sess.secretVersion != b.Version:
		sess.mu.Unlock()
		return nil, ErrBasketChanged
	case s.cfg.RequireCompleteCard && (sess.cardEmpty || sess.cardInvalid):
		sess.mu.Unlock()
		return nil, ErrSubmitDisabled
	}
	secret := sess.clientSecret
	items := b.Snapshot()
	sess.state = StateProcessing
	sess.errMsg = ""
	sess.mu.Unlock()

	intent, err := s.payments.ConfirmCardPayment(ctx, secret, method)
	if err != nil {
		record(ctx, s.metrics.confirmations, "error")
		msg := msgPaymentFailed
		var cardErr *payment.CardError
		if errors.As(err, &cardErr) && cardErr.Message != "" {
			msg = cardErr.Message
		}
		s.fail(sess, msg)
		return nil, &PaymentError{Message: msg, Err: err}
	}
	if !intent.Confirmed() {
		record(ctx, s.metrics.confirmations, string(intent.Status))
		s.fail(sess, msgNotConfirmed)
		return nil, &PaymentError{
			Message: msgNotConfirmed,
			Err:     errors.Wrapf(ErrNotConfirmed, "intent %s is %s", intent.ID, intent.Status),
		}
	}
	record(ctx, s.metrics.confirmations, "succeeded")

	return s.writeOrder(ctx, u, sess, intent, items, b.Version)
}

// retryWrite moves the session to StateProcessing and writes the order of
// the remembered confirmed intent. It must be called with sess.mu held and
// releases it.
func (s *Service) retryWrite(ctx context.Context, u user.User, sess *session) (*Outcome, error) {
	intent, items, version := sess.confirmed, sess.confirmedItems, sess.confirmedVersion
	sess.state = StateProcessing
	sess.errMsg = ""
	sess.mu.Unlock()
	return s.writeOrder(ctx, u, sess, intent, items, version)
}

// writeOrder persists the order for a confirmed intent, then clears the paid
// items from the basket. version is the basket version the intent paid for.
// The session must already be in StateProcessing.
func (s *Service) writeOrder(
	ctx context.Context,
	u user.User,
	sess *session,
	intent *payment.Intent,
	items []basket.Item,
	version uint64,
) (*Outcome, error) {
	lg := zctx.From(ctx).With(
		zap.String("uid", u.UID),
		zap.String("payment_intent", intent.ID),
	)

	rec, err := s.orders.Place(ctx, u.UID, intent, items)
	if errors.Is(err, order.ErrAlreadyExists) {
		// Written by an earlier attempt whose response was lost.
		rec = &order.Record{
			UID:             u.UID,
			PaymentIntentID: intent.ID,
			Basket:          items,
			Amount:          intent.Amount,
			Created:         intent.Created,
		}
		err = nil
	}
	if err != nil {
		record(ctx, s.metrics.orderWrites, "error")
		lg.Error("Error adding order", zap.Error(err))

		sess.mu.Lock()
		sess.state = StateFailed
		sess.errMsg = msgOrderNotSaved
		sess.confirmed = intent
		sess.confirmedItems = items
		sess.confirmedVersion = version
		sess.mu.Unlock()
		return nil, &OrderWriteError{PaymentIntentID: intent.ID, Err: err}
	}
	record(ctx, s.metrics.orderWrites, "ok")

	s.clearPaid(ctx, lg, u.UID, version, items)

	sess.mu.Lock()
	sess.state = StateSucceeded
	sess.errMsg = ""
	sess.confirmed = nil
	sess.confirmedItems = nil
	sess.confirmedVersion = 0
	sess.clientSecret = ""
	sess.hasSecret = false
	form := sess.form()
	sess.mu.Unlock()

	lg.Info("Order placed",
		zap.Int64("amount", intent.Amount),
		zap.Time("created", intent.Created),
	)

	return &Outcome{
		Form:     form,
		Order:    rec,
		Redirect: s.cfg.OrdersPath,
	}, nil
}

// clearPaid empties the basket when it still holds exactly what was paid
// for. Items added since then are unpaid and stay: only the paid items are
// removed. Errors are logged, the order stands either way.
func (s *Service) clearPaid(ctx context.Context, lg *zap.Logger, uid string, version uint64, paid []basket.Item) {
	b, err := s.baskets.Get(ctx, uid)
	if err != nil {
		lg.Error("Get basket after order", zap.Error(err))
		return
	}
	if b.Version == version {
		if _, err := s.baskets.Dispatch(ctx, uid, basket.EmptyBasket()); err != nil {
			lg.Error("Empty basket after order", zap.Error(err))
		}
		return
	}

	lg.Warn("Basket changed since payment, removing paid items only",
		zap.Uint64("paid_version", version),
		zap.Uint64("version", b.Version),
		zap.Int("paid_items", len(paid)),
	)
	for _, item := range paid {
		if _, err := s.baskets.Dispatch(ctx, uid, basket.RemoveFromBasket(item.ID)); err != nil {
			lg.Error("Remove paid item after order", zap.String("item", item.ID), zap.Error(err))
			return
		}
	}
}

func (s *Service) fail(sess *session, msg string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state = StateFailed
	sess.errMsg = msg
}
