package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/annotation"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
)

// Service is the subscription lifecycle manager: it creates subscriptions
// (annotating them on the way in), cancels them, and lists them.
type Service struct {
	store     Store
	annotator annotation.Provider
	logger    *observability.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewService creates a new lifecycle service
func NewService(store Store, annotator annotation.Provider, logger *observability.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = observability.NewLogger("info", nil)
	}
	return &Service{
		store:     store,
		annotator: annotator,
		logger:    logger.WithField("component", "subscription"),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Create enrolls a donor in a recurring donation. The annotation provider is
// total, so creation can only fail on a store error, which is surfaced as
// fatal to the caller.
func (s *Service) Create(ctx context.Context, donorID string, amount float64, currency string, interval Interval, campaignDescription string) (*Subscription, error) {
	result := s.annotator.Annotate(ctx, campaignDescription)

	sub := &Subscription{
		DonorID:             donorID,
		Amount:              amount,
		Currency:            currency,
		Interval:            interval,
		CampaignDescription: campaignDescription,
		Tags:                result.Tags,
		Summary:             result.Summary,
		Active:              true,
		CreatedAt:           s.now().UTC(),
	}

	if err := s.store.Add(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist subscription: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ActiveSubscriptions.Inc()
	}
	s.logger.WithFields(map[string]interface{}{
		"donor_id": donorID,
		"interval": string(interval),
		"currency": currency,
	}).Info("subscription created")

	return sub, nil
}

// Cancel deactivates the donor's active subscription and reports whether one
// was found. Cancellation is terminal; the record stays in the store.
func (s *Service) Cancel(ctx context.Context, donorID string) (bool, error) {
	found, err := s.store.Deactivate(ctx, donorID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	if found {
		if s.metrics != nil {
			s.metrics.ActiveSubscriptions.Dec()
		}
		s.logger.WithField("donor_id", donorID).Info("subscription cancelled")
	}
	return found, nil
}

// ListActive returns the narrowed views of all active subscriptions
func (s *Service) ListActive(ctx context.Context) ([]View, error) {
	subs, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	views := make([]View, 0, len(subs))
	for _, sub := range subs {
		views = append(views, ViewOf(sub))
	}
	return views, nil
}

// ListAll returns every subscription ever created, including cancelled ones
func (s *Service) ListAll(ctx context.Context) ([]*Subscription, error) {
	subs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
