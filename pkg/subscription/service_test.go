package subscription

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/annotation"
)

type fixedAnnotator struct {
	result annotation.Result
}

func (f *fixedAnnotator) Annotate(ctx context.Context, description string) annotation.Result {
	return f.result
}

type failingStore struct {
	Store
}

func (f *failingStore) Add(ctx context.Context, sub *Subscription) error {
	return errors.New("store exhausted")
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("annotates and persists", func(t *testing.T) {
		store := NewMemoryStore()
		annotator := &fixedAnnotator{result: annotation.Result{
			Tags:    []string{"water", "africa"},
			Summary: "Clean water.",
		}}
		svc := NewService(store, annotator, nil, nil)

		sub, err := svc.Create(ctx, "d1", 25, "EUR", IntervalMonthly, "Clean water for rural villages")
		require.NoError(t, err)

		assert.Equal(t, "d1", sub.DonorID)
		assert.Equal(t, []string{"water", "africa"}, sub.Tags)
		assert.Equal(t, "Clean water.", sub.Summary)
		assert.True(t, sub.Active)
		assert.Nil(t, sub.LastCharged)
		assert.False(t, sub.CreatedAt.IsZero())

		active, err := store.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("annotation trouble never blocks creation", func(t *testing.T) {
		// A real chat provider pointed at a dead endpoint degrades to the
		// documented fallback instead of failing the create.
		store := NewMemoryStore()
		annotator := annotation.NewChatProvider(annotation.ChatConfig{
			BaseURL: "http://127.0.0.1:1",
			Timeout: 50 * time.Millisecond,
		}, nil, nil)
		svc := NewService(store, annotator, nil, nil)

		long := strings.Repeat("d", 130)
		sub, err := svc.Create(ctx, "d1", 10, "USD", IntervalDaily, long)
		require.NoError(t, err)

		assert.Equal(t, []string{"default", "fallback"}, sub.Tags)
		assert.Equal(t, strings.Repeat("d", 100)+"...", sub.Summary)
	})

	t.Run("store failure is fatal", func(t *testing.T) {
		svc := NewService(&failingStore{}, &fixedAnnotator{}, nil, nil)

		_, err := svc.Create(ctx, "d1", 10, "USD", IntervalDaily, "desc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to persist subscription")
	})
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, &fixedAnnotator{}, nil, nil)

	_, err := svc.Create(ctx, "d1", 25, "EUR", IntervalMonthly, "desc")
	require.NoError(t, err)

	found, err := svc.Cancel(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, found)

	views, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)

	// Second cancellation finds nothing.
	found, err = svc.Cancel(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestService_ListActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, &fixedAnnotator{result: annotation.Result{
		Tags:    []string{"x"},
		Summary: "s",
	}}, nil, nil)

	_, err := svc.Create(ctx, "d1", 25, "EUR", IntervalMonthly, "first")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "d2", 10, "USD", IntervalWeekly, "second")
	require.NoError(t, err)

	views, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// Views carry the narrowed field set in insertion order.
	assert.Equal(t, "d1", views[0].DonorID)
	assert.Equal(t, IntervalMonthly, views[0].Interval)
	assert.Equal(t, "first", views[0].CampaignDescription)
	assert.Equal(t, []string{"x"}, views[0].Tags)
	assert.Equal(t, "d2", views[1].DonorID)
}
