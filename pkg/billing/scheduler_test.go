package billing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/currency"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/subscription"
)

type fixedConverter struct {
	rate float64
	fail bool

	mu    sync.Mutex
	calls int
}

func (c *fixedConverter) Convert(_ context.Context, amount float64, fromCurrency string) currency.Conversion {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	conversion := currency.Conversion{Amount: amount, Currency: fromCurrency}
	if c.fail {
		return conversion
	}
	v := currency.Round2(amount * c.rate)
	conversion.Converted = &v
	return conversion
}

func newTestSubscription(donorID string, interval subscription.Interval, lastCharged *time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		DonorID:             donorID,
		Amount:              25,
		Currency:            "EUR",
		Interval:            interval,
		CampaignDescription: "monthly giving",
		Tags:                []string{"giving"},
		Summary:             "monthly giving",
		Active:              true,
		CreatedAt:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LastCharged:         lastCharged,
	}
}

func TestNextDue(t *testing.T) {
	base := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval subscription.Interval
		expected time.Time
		ok       bool
	}{
		{"daily", subscription.IntervalDaily, base.AddDate(0, 0, 1), true},
		{"weekly", subscription.IntervalWeekly, base.AddDate(0, 0, 7), true},
		{"monthly rolls over short months", subscription.IntervalMonthly, time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), true},
		{"yearly", subscription.IntervalYearly, base.AddDate(1, 0, 0), true},
		{"unknown", subscription.Interval("fortnightly"), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due, ok := NextDue(base, tt.interval)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, due.Equal(tt.expected), "expected %s, got %s", tt.expected, due)
			}
		})
	}
}

func TestScheduler_Eligible(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(nil, nil, nil, WithTolerance(time.Minute))

	monthAgo := now.AddDate(0, -1, 0)

	tests := []struct {
		name     string
		sub      *subscription.Subscription
		eligible bool
	}{
		{"never charged", newTestSubscription("d1", subscription.IntervalMonthly, nil), true},
		{"due exactly now", newTestSubscription("d1", subscription.IntervalMonthly, &monthAgo), true},
		{"unknown interval never eligible", newTestSubscription("d1", subscription.Interval("fortnightly"), nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eligible, s.Eligible(tt.sub, now))
		})
	}

	t.Run("tolerance boundaries", func(t *testing.T) {
		tests := []struct {
			name     string
			offset   time.Duration
			eligible bool
		}{
			{"just inside early edge", -59 * time.Second, true},
			{"exactly on early edge", -time.Minute, true},
			{"just outside early edge", -61 * time.Second, false},
			{"just inside late edge", 59 * time.Second, true},
			{"exactly on late edge", time.Minute, true},
			{"just outside late edge", 61 * time.Second, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				// lastCharged such that the due instant is now - offset.
				last := now.Add(-tt.offset).AddDate(0, -1, 0)
				sub := newTestSubscription("d1", subscription.IntervalMonthly, &last)
				assert.Equal(t, tt.eligible, s.Eligible(sub, now))
			})
		}
	})
}

func TestScheduler_RunTick(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("charges never-charged subscriptions immediately", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Add(ctx, newTestSubscription("donor-1", subscription.IntervalMonthly, nil)))

		converter := &fixedConverter{rate: 1.1}
		ledger := NewLedger(nil)
		s := NewScheduler(store, converter, ledger, WithClock(clock))

		require.NoError(t, s.RunTick(ctx))

		entries := ledger.List()
		require.Len(t, entries, 1)
		tx := entries[0]
		assert.Equal(t, "donor-1", tx.DonorID)
		assert.Equal(t, 25.0, tx.Amount)
		assert.Equal(t, "EUR", tx.Currency)
		require.NotNil(t, tx.AmountConverted)
		assert.InDelta(t, 27.5, *tx.AmountConverted, 1e-9)
		assert.Equal(t, currency.ReferenceCurrency, tx.ConvertedCurrency)
		assert.Equal(t, []string{"giving"}, tx.Tags)
		assert.Equal(t, "monthly giving", tx.Summary)
		assert.Equal(t, "monthly giving", tx.CampaignDescription)
		assert.True(t, tx.ChargedAt.Equal(now))
		assert.NotEmpty(t, tx.ID)

		// The ledger entry carries the annotation snapshot on the wire too.
		encoded, err := json.Marshal(tx)
		require.NoError(t, err)
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Contains(t, decoded, "tags")
		assert.Contains(t, decoded, "summary")
		assert.Contains(t, decoded, "campaignDescription")

		subs, err := store.ListActive(ctx)
		require.NoError(t, err)
		require.NotNil(t, subs[0].LastCharged)
		assert.True(t, subs[0].LastCharged.Equal(now))
	})

	t.Run("back-to-back ticks charge once", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Add(ctx, newTestSubscription("donor-1", subscription.IntervalMonthly, nil)))

		ledger := NewLedger(nil)
		s := NewScheduler(store, &fixedConverter{rate: 1}, ledger, WithClock(clock))

		require.NoError(t, s.RunTick(ctx))
		require.NoError(t, s.RunTick(ctx))

		assert.Equal(t, 1, ledger.Len())
	})

	t.Run("concurrent ticks charge once", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		for _, id := range []string{"donor-1", "donor-2", "donor-3"} {
			require.NoError(t, store.Add(ctx, newTestSubscription(id, subscription.IntervalMonthly, nil)))
		}

		ledger := NewLedger(nil)
		s := NewScheduler(store, &fixedConverter{rate: 1}, ledger, WithClock(clock))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.RunTick(ctx)
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, ledger.Len())
	})

	t.Run("conversion failure still records the charge", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Add(ctx, newTestSubscription("donor-1", subscription.IntervalMonthly, nil)))

		ledger := NewLedger(nil)
		s := NewScheduler(store, &fixedConverter{fail: true}, ledger, WithClock(clock))

		require.NoError(t, s.RunTick(ctx))

		entries := ledger.List()
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].AmountConverted)

		subs, err := store.ListActive(ctx)
		require.NoError(t, err)
		require.NotNil(t, subs[0].LastCharged)
	})

	t.Run("unknown interval subscriptions are skipped", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Add(ctx, newTestSubscription("donor-1", subscription.Interval("fortnightly"), nil)))

		ledger := NewLedger(nil)
		s := NewScheduler(store, &fixedConverter{rate: 1}, ledger, WithClock(clock))

		require.NoError(t, s.RunTick(ctx))
		assert.Zero(t, ledger.Len())
	})

	t.Run("not-yet-due subscriptions are skipped", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		recent := now.Add(-time.Hour)
		require.NoError(t, store.Add(ctx, newTestSubscription("donor-1", subscription.IntervalMonthly, &recent)))

		ledger := NewLedger(nil)
		s := NewScheduler(store, &fixedConverter{rate: 1}, ledger, WithClock(clock))

		require.NoError(t, s.RunTick(ctx))
		assert.Zero(t, ledger.Len())
	})

	t.Run("ledger stays ordered across repeated due cycles", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Add(ctx, newTestSubscription("donor-1", subscription.IntervalDaily, nil)))
		require.NoError(t, store.Add(ctx, newTestSubscription("donor-2", subscription.IntervalDaily, nil)))

		current := now
		ledger := NewLedger(nil)
		s := NewScheduler(store, &fixedConverter{rate: 1}, ledger, WithClock(func() time.Time { return current }))

		for i := 0; i < 5; i++ {
			require.NoError(t, s.RunTick(ctx))
			current = current.AddDate(0, 0, 1)
		}

		entries := ledger.List()
		require.Len(t, entries, 10)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i].ChargedAt.Before(entries[i-1].ChargedAt))
			assert.Equal(t, entries[i-1].Seq+1, entries[i].Seq)
		}
	})
}

type listFailingStore struct {
	subscription.Store
}

func (s *listFailingStore) ListActive(_ context.Context) ([]*subscription.Subscription, error) {
	return nil, errors.New("store unavailable")
}

func TestScheduler_RunTick_StoreListFailure(t *testing.T) {
	ledger := NewLedger(nil)
	s := NewScheduler(&listFailingStore{Store: subscription.NewMemoryStore()}, &fixedConverter{rate: 1}, ledger,
		WithClock(time.Now))

	err := s.RunTick(context.Background())
	assert.Error(t, err)
	assert.Zero(t, ledger.Len())
}

func TestScheduler_StartStop(t *testing.T) {
	t.Run("start is idempotent", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		s := NewScheduler(store, &fixedConverter{rate: 1}, NewLedger(nil),
			WithTickPeriod(time.Second), WithTolerance(time.Minute))

		require.NoError(t, s.Start())
		defer s.Stop()

		err := s.Start()
		assert.ErrorIs(t, err, ErrAlreadyStarted)
	})

	t.Run("rejects tick period above tolerance", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		s := NewScheduler(store, &fixedConverter{rate: 1}, NewLedger(nil),
			WithTickPeriod(5*time.Minute), WithTolerance(time.Minute))

		err := s.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tolerance")
	})

	t.Run("stop allows a later start", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		s := NewScheduler(store, &fixedConverter{rate: 1}, NewLedger(nil),
			WithTickPeriod(time.Second), WithTolerance(time.Minute))

		require.NoError(t, s.Start())
		s.Stop()
		require.NoError(t, s.Start())
		s.Stop()
	})
}
