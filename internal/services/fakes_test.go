package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"kasa/internal/events"
	"kasa/internal/fxrate"
)

// testNow is the fixed clock of service tests.
var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.events))
	for i, e := range p.events {
		keys[i] = e.Key
	}
	return keys
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return events.Event{}
	}
	return p.events[len(p.events)-1]
}

// testRates quotes USD at 32/32.1 and EUR at 35/35.2 on every date.
func testRates() fxrate.Provider {
	return fxrate.NewStaticProvider(map[string][2]decimal.Decimal{
		"USD": {decimal.RequireFromString("32"), decimal.RequireFromString("32.1")},
		"EUR": {decimal.RequireFromString("35"), decimal.RequireFromString("35.2")},
	})
}

// ledger wires every service against one database with a fixed clock.
type ledger struct {
	accounts      AccountServicer
	categories    CategoryServicer
	commissions   CommissionServicer
	transactions  TransactionServicer
	transfers     TransferServicer
	subscriptions SubscriptionServicer
	published     *recordingPublisher
}

func newLedger(t *testing.T, db *gorm.DB, rates fxrate.Provider, enforcePayoutLimit bool) *ledger {
	t.Helper()

	pub := &recordingPublisher{}
	accounts := NewAccountService(db)
	categories := NewCategoryService(db)
	commissions := NewCommissionService(db, pub, enforcePayoutLimit)
	transactions := NewTransactionService(db, accounts, categories, commissions, rates, pub)
	transfers := NewTransferService(db, accounts, categories, rates, pub)
	subscriptions := NewSubscriptionService(db, transactions, pub)

	clock := func() time.Time { return testNow }
	commissions.(*commissionService).now = clock
	transactions.(*transactionService).now = clock
	transfers.(*transferService).now = clock
	subscriptions.(*subscriptionService).now = clock

	return &ledger{
		accounts:      accounts,
		categories:    categories,
		commissions:   commissions,
		transactions:  transactions,
		transfers:     transfers,
		subscriptions: subscriptions,
		published:     pub,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
