// Package billing runs the recurring charge scheduler and keeps the
// append-only transaction ledger it writes to.
package billing

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/subscription"
)

// Transaction is one recorded charge. Fields are a snapshot of the
// subscription at charge time; later edits to the subscription never rewrite
// ledger history.
type Transaction struct {
	ID                  string                `json:"id"`
	Seq                 uint64                `json:"seq"`
	DonorID             string                `json:"donorId"`
	Amount              float64               `json:"amount"`
	Currency            string                `json:"currency"`
	AmountConverted     *float64              `json:"amountConverted"`
	ConvertedCurrency   string                `json:"convertedCurrency"`
	Interval            subscription.Interval `json:"interval"`
	CampaignDescription string                `json:"campaignDescription"`
	Tags                []string              `json:"tags"`
	Summary             string                `json:"summary"`
	ChargedAt           time.Time             `json:"chargedAt"`
}

// View is the narrowed transaction shape exposed by ledger listings; it hides
// ledger bookkeeping (id, sequence, interval) from consumers.
type View struct {
	DonorID         string    `json:"donorId"`
	Amount          float64   `json:"amount"`
	AmountConverted *float64  `json:"amountConverted"`
	Currency        string    `json:"currency"`
	ChargedAt       time.Time `json:"chargedAt"`
	Summary         string    `json:"summary"`
}

// ViewOf projects a transaction into its listing view.
func ViewOf(tx Transaction) View {
	return View{
		DonorID:         tx.DonorID,
		Amount:          tx.Amount,
		AmountConverted: tx.AmountConverted,
		Currency:        tx.Currency,
		ChargedAt:       tx.ChargedAt,
		Summary:         tx.Summary,
	}
}

// Ledger is an append-only, in-memory transaction log. Transactions are never
// updated or deleted once appended.
type Ledger struct {
	mu      sync.RWMutex
	entries []Transaction
	seq     uint64
	metrics *observability.Metrics
}

// NewLedger creates an empty ledger
func NewLedger(metrics *observability.Metrics) *Ledger {
	return &Ledger{metrics: metrics}
}

// Append records a transaction, assigning its ID and sequence number, and
// returns the stored entry.
func (l *Ledger) Append(tx Transaction) Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	tx.ID = uuid.NewString()
	tx.Seq = l.seq
	l.entries = append(l.entries, tx)

	if l.metrics != nil {
		l.metrics.LedgerSize.Set(float64(len(l.entries)))
	}
	return tx
}

// List returns a copy of all transactions in append order
func (l *Ledger) List() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded transactions
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
