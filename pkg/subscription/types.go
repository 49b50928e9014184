// Package subscription holds the donor subscription model, the store that is
// the single authority over subscription state, and the lifecycle service
// exposed to the HTTP layer.
package subscription

import (
	"time"
)

// Interval is the charge interval of a subscription.
//
// Values outside the four known units are carried as-is but make the
// subscription permanently ineligible for charging; this is a deliberate
// fail-safe default rather than an error.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
)

// Known reports whether the interval is one of the four chargeable units.
func (i Interval) Known() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// Subscription represents a recurring donation enrollment.
//
// The scheduler only ever mutates LastCharged; Active flips true to false
// exactly once on cancellation and the record stays in the store afterwards
// for audit listings.
type Subscription struct {
	DonorID             string     `json:"donorId"`
	Amount              float64    `json:"amount"`
	Currency            string     `json:"currency"`
	Interval            Interval   `json:"interval"`
	CampaignDescription string     `json:"campaignDescription"`
	Tags                []string   `json:"tags"`
	Summary             string     `json:"summary"`
	Active              bool       `json:"active"`
	CreatedAt           time.Time  `json:"createdAt"`
	LastCharged         *time.Time `json:"lastCharged"`
}

// Clone returns a deep copy of the subscription.
func (s *Subscription) Clone() *Subscription {
	dup := *s
	if s.Tags != nil {
		dup.Tags = append([]string(nil), s.Tags...)
	}
	if s.LastCharged != nil {
		t := *s.LastCharged
		dup.LastCharged = &t
	}
	return &dup
}

// View is the narrowed subscription shape exposed by active listings; it
// hides lifecycle bookkeeping (active flag, timestamps) from consumers.
type View struct {
	DonorID             string   `json:"donorId"`
	Amount              float64  `json:"amount"`
	Currency            string   `json:"currency"`
	Interval            Interval `json:"interval"`
	CampaignDescription string   `json:"campaignDescription"`
	Tags                []string `json:"tags"`
	Summary             string   `json:"summary"`
}

// ViewOf projects a subscription into its listing view.
func ViewOf(s *Subscription) View {
	return View{
		DonorID:             s.DonorID,
		Amount:              s.Amount,
		Currency:            s.Currency,
		Interval:            s.Interval,
		CampaignDescription: s.CampaignDescription,
		Tags:                s.Tags,
		Summary:             s.Summary,
	}
}
