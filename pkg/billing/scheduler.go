package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/currency"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/subscription"
)

const (
	// DefaultTickPeriod is how often the scheduler wakes up.
	DefaultTickPeriod = time.Minute

	// DefaultTolerance is the window around the computed due instant within
	// which a subscription is charged.
	DefaultTolerance = time.Minute

	// DefaultMaxConcurrentCharges bounds the per-tick charge fan-out.
	DefaultMaxConcurrentCharges = 8
)

// ErrAlreadyStarted is returned by Start when the scheduler is running
var ErrAlreadyStarted = errors.New("billing scheduler already started")

// Scheduler periodically charges due subscriptions and records the charges in
// the ledger. A subscription is due when its computed next-due instant falls
// within the tolerance window of the tick time; the tolerance must be at
// least the tick period or due instants can fall between ticks and be missed.
type Scheduler struct {
	store     subscription.Store
	converter currency.Converter
	ledger    *Ledger

	tickPeriod    time.Duration
	tolerance     time.Duration
	maxConcurrent int
	logger        *observability.Logger
	metrics       *observability.Metrics
	now           func() time.Time

	cron *cron.Cron

	mu      sync.Mutex
	started bool

	// tickMu serializes ticks so a slow tick and the next cron firing (or a
	// manual RunTick) can never charge the same subscription twice.
	tickMu sync.Mutex
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithTickPeriod sets how often the scheduler runs
func WithTickPeriod(d time.Duration) Option {
	return func(s *Scheduler) { s.tickPeriod = d }
}

// WithTolerance sets the charge window around the due instant
func WithTolerance(d time.Duration) Option {
	return func(s *Scheduler) { s.tolerance = d }
}

// WithMaxConcurrentCharges bounds how many charges run at once per tick
func WithMaxConcurrentCharges(n int) Option {
	return func(s *Scheduler) { s.maxConcurrent = n }
}

// WithLogger sets the scheduler logger
func WithLogger(logger *observability.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithMetrics sets the scheduler metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = metrics }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler over the given store, converter and ledger
func NewScheduler(store subscription.Store, converter currency.Converter, ledger *Ledger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:         store,
		converter:     converter,
		ledger:        ledger,
		tickPeriod:    DefaultTickPeriod,
		tolerance:     DefaultTolerance,
		maxConcurrent: DefaultMaxConcurrentCharges,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.NewLogger("info", nil)
	}
	s.logger = s.logger.WithField("component", "scheduler")
	return s
}

// NextDue returns when a subscription last charged at last is due again. The
// second return is false for unknown intervals.
func NextDue(last time.Time, interval subscription.Interval) (time.Time, bool) {
	switch interval {
	case subscription.IntervalDaily:
		return last.AddDate(0, 0, 1), true
	case subscription.IntervalWeekly:
		return last.AddDate(0, 0, 7), true
	case subscription.IntervalMonthly:
		return last.AddDate(0, 1, 0), true
	case subscription.IntervalYearly:
		return last.AddDate(1, 0, 0), true
	}
	return time.Time{}, false
}

// Eligible reports whether a subscription should be charged at now. Never
// charged means due immediately; an unknown interval is never eligible.
func (s *Scheduler) Eligible(sub *subscription.Subscription, now time.Time) bool {
	if !sub.Interval.Known() {
		return false
	}
	if sub.LastCharged == nil {
		return true
	}
	due, ok := NextDue(*sub.LastCharged, sub.Interval)
	if !ok {
		return false
	}
	diff := now.Sub(due)
	if diff < 0 {
		diff = -diff
	}
	return diff <= s.tolerance
}

// Start begins periodic ticks. It is safe to call once; a second call returns
// ErrAlreadyStarted.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if s.tickPeriod > s.tolerance {
		return fmt.Errorf("tick period %s exceeds tolerance %s, due instants could be missed", s.tickPeriod, s.tolerance)
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.tickPeriod), func() {
		if err := s.RunTick(context.Background()); err != nil {
			s.logger.WithError(err).Error("billing tick failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule billing tick: %w", err)
	}

	s.cron.Start()
	s.started = true
	s.logger.WithFields(map[string]interface{}{
		"tick":      s.tickPeriod.String(),
		"tolerance": s.tolerance.String(),
	}).Info("billing scheduler started")
	return nil
}

// Stop halts periodic ticks and waits for any in-flight tick to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info("billing scheduler stopped")
}

// RunTick performs one billing pass: list active subscriptions, charge the
// eligible ones concurrently, record each charge in the ledger and mark it on
// the store. Failures on one subscription never abort the others.
func (s *Scheduler) RunTick(ctx context.Context) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	started := s.now()
	tickNow := started.UTC()

	subs, err := s.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	var eligible []*subscription.Subscription
	for _, sub := range subs {
		if s.Eligible(sub, tickNow) {
			eligible = append(eligible, sub)
		}
	}

	if len(eligible) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.maxConcurrent)
		for _, sub := range eligible {
			sub := sub
			g.Go(func() error {
				s.charge(gctx, sub, tickNow)
				return nil
			})
		}
		g.Wait()
	}

	if s.metrics != nil {
		s.metrics.RecordTick(len(eligible), time.Since(started))
	}
	s.logger.WithFields(map[string]interface{}{
		"active":   len(subs),
		"eligible": len(eligible),
	}).Debug("billing tick complete")
	return nil
}

func (s *Scheduler) charge(ctx context.Context, sub *subscription.Subscription, chargedAt time.Time) {
	conversion := s.converter.Convert(ctx, sub.Amount, sub.Currency)

	tx := s.ledger.Append(Transaction{
		DonorID:             sub.DonorID,
		Amount:              sub.Amount,
		Currency:            sub.Currency,
		AmountConverted:     conversion.Converted,
		ConvertedCurrency:   currency.ReferenceCurrency,
		Interval:            sub.Interval,
		CampaignDescription: sub.CampaignDescription,
		Tags:                append([]string(nil), sub.Tags...),
		Summary:             sub.Summary,
		ChargedAt:           chargedAt,
	})

	updated, err := s.store.MarkCharged(ctx, sub.DonorID, sub.CreatedAt, chargedAt)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ChargeRecordErrors.Inc()
		}
		s.logger.WithError(err).WithField("donorId", sub.DonorID).
			Error("charge recorded in ledger but failed to mark on subscription")
	} else if !updated {
		s.logger.WithField("donorId", sub.DonorID).
			Warn("charged subscription no longer present in store")
	}

	if s.metrics != nil {
		s.metrics.RecordCharge(string(sub.Interval), conversion.Converted != nil)
	}
	s.logger.WithFields(map[string]interface{}{
		"donorId":       sub.DonorID,
		"amount":        sub.Amount,
		"currency":      sub.Currency,
		"converted":     conversion.Converted != nil,
		"transactionId": tx.ID,
	}).Info("charged subscription")
}
