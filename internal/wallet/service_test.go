package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestService() *Service {
	s := NewService(NewMemoryRepo())
	s.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestCreditValidation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Credit(ctx, "", 100, EntryTypeCredit, "topup", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty user, got %v", err)
	}
	if _, err := s.Credit(ctx, "u1", 0, EntryTypeCredit, "topup", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero amount, got %v", err)
	}
	if _, err := s.Credit(ctx, "u1", -500, EntryTypeCredit, "topup", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for negative amount, got %v", err)
	}
}

func TestCreditThenDebit(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	e, err := s.Credit(ctx, "u1", 1000, EntryTypeCredit, "admin topup", "adm-1")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if e.BalanceAfterMinor != 1000 {
		t.Fatalf("expected balance_after 1000, got %d", e.BalanceAfterMinor)
	}
	if e.AmountMinor != 1000 {
		t.Fatalf("expected amount 1000, got %d", e.AmountMinor)
	}

	e, err = s.Debit(ctx, "u1", 400, EntryTypePurchase, "order", "ord-1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if e.AmountMinor != -400 {
		t.Fatalf("expected stored amount -400, got %d", e.AmountMinor)
	}
	if e.BalanceAfterMinor != 600 {
		t.Fatalf("expected balance_after 600, got %d", e.BalanceAfterMinor)
	}

	b, err := s.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.BalanceMinor != 600 {
		t.Fatalf("expected balance 600, got %d", b.BalanceMinor)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Credit(ctx, "u1", 300, EntryTypeCredit, "topup", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := s.Debit(ctx, "u1", 301, EntryTypePurchase, "order", "ord-1"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Failed debit must not leave a ledger entry or change the balance.
	b, _ := s.GetBalance(ctx, "u1")
	if b.BalanceMinor != 300 {
		t.Fatalf("balance changed after failed debit: %d", b.BalanceMinor)
	}
	entries, _ := s.History(ctx, "u1", 50)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestDebitZeroBalanceUser(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Debit(ctx, "fresh", 1, EntryTypePurchase, "order", "ord-1"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for fresh wallet, got %v", err)
	}
}

// Two concurrent debits that together exceed the balance: exactly one must
// succeed. The wallet can never go negative.
func TestConcurrentDebitsNoOverdraft(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Credit(ctx, "u1", 1000, EntryTypeCredit, "topup", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Debit(ctx, "u1", 700, EntryTypePurchase, "order", "ord")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly 1 successful debit, got %d", ok)
	}
	if insufficient != workers-1 {
		t.Fatalf("expected %d rejections, got %d", workers-1, insufficient)
	}

	b, _ := s.GetBalance(ctx, "u1")
	if b.BalanceMinor != 300 {
		t.Fatalf("expected balance 300, got %d", b.BalanceMinor)
	}
	if b.BalanceMinor < 0 {
		t.Fatalf("wallet went negative: %d", b.BalanceMinor)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Credit(ctx, "u1", 100, EntryTypeCredit, "first", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := s.Credit(ctx, "u1", 200, EntryTypeCredit, "second", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	entries, err := s.History(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Reason != "second" || entries[1].Reason != "first" {
		t.Fatalf("expected newest first, got %q then %q", entries[0].Reason, entries[1].Reason)
	}
}
