package codes

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"gamelo-backend/internal/codecrypt"
)

func testCipher(t *testing.T) *codecrypt.Cipher {
	t.Helper()
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	c, err := codecrypt.New(key)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	return c
}

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	return NewService(repo, testCipher(t), nil), repo
}

func TestUploadTrimsAndDedupes(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	res, err := s.Upload(ctx, "p1", []string{" CODE-1 ", "CODE-2", "CODE-1", "", "   "})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Added != 2 || res.Duplicates != 1 {
		t.Fatalf("expected added=2 duplicates=1, got %+v", res)
	}

	// Re-uploading the same file is idempotent.
	res, err = s.Upload(ctx, "p1", []string{"CODE-1", "CODE-2", "CODE-3"})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if res.Added != 1 || res.Duplicates != 2 {
		t.Fatalf("expected added=1 duplicates=2, got %+v", res)
	}

	n, err := s.CountAvailable(ctx, "p1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 available, got %d", n)
	}
}

func TestUploadSameValueDifferentProducts(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if res, _ := s.Upload(ctx, "p1", []string{"SHARED"}); res.Added != 1 {
		t.Fatalf("p1 upload: %+v", res)
	}
	// Fingerprint uniqueness is per product, not global.
	if res, _ := s.Upload(ctx, "p2", []string{"SHARED"}); res.Added != 1 {
		t.Fatalf("p2 upload: %+v", res)
	}
}

func TestReserveAllOrNothing(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "p1", []string{"A", "B"}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := s.Reserve(ctx, "p1", 3, "ord-1"); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	// Failed reservation must not consume anything.
	if n, _ := s.CountAvailable(ctx, "p1"); n != 2 {
		t.Fatalf("stock consumed by failed reservation: %d", n)
	}

	got, err := s.Reserve(ctx, "p1", 2, "ord-2")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(got))
	}
	if n, _ := s.CountAvailable(ctx, "p1"); n != 0 {
		t.Fatalf("expected 0 available, got %d", n)
	}
}

// N+1 concurrent buyers of N codes: exactly N succeed, no code is handed out twice.
func TestConcurrentReserveNoOversell(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	const stock = 5
	values := make([]string, stock)
	for i := range values {
		values[i] = "CODE-" + string(rune('A'+i))
	}
	if _, err := s.Upload(ctx, "p1", values); err != nil {
		t.Fatalf("upload: %v", err)
	}

	const buyers = stock + 1
	var wg sync.WaitGroup
	type result struct {
		codes []Code
		err   error
	}
	results := make(chan result, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		orderID := "ord-" + string(rune('0'+i))
		go func(orderID string) {
			defer wg.Done()
			got, err := s.Reserve(ctx, "p1", 1, orderID)
			results <- result{got, err}
		}(orderID)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	var ok, outOfStock int
	for r := range results {
		switch {
		case r.err == nil:
			ok++
			for _, c := range r.codes {
				if seen[c.ID] {
					t.Fatalf("code %s handed out twice", c.ID)
				}
				seen[c.ID] = true
			}
		case errors.Is(r.err, ErrInsufficientStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", r.err)
		}
	}
	if ok != stock || outOfStock != 1 {
		t.Fatalf("expected %d successes and 1 rejection, got %d/%d", stock, ok, outOfStock)
	}
}

func TestRevealIdempotent(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "p1", []string{"GIFT-111", "GIFT-222"}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := s.Reserve(ctx, "p1", 2, "ord-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := s.Finalize(ctx, "ord-1", "u1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	first, err := s.Reveal(ctx, "ord-1")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	second, err := s.Reveal(ctx, "ord-1")
	if err != nil {
		t.Fatalf("repeat reveal: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 codes both times, got %d and %d", len(first), len(second))
	}

	values := func(list []RevealedCode) string {
		var b strings.Builder
		for _, rc := range list {
			b.WriteString(rc.Value)
			b.WriteString("|")
		}
		return b.String()
	}
	if values(first) != values(second) {
		t.Fatalf("repeat reveal returned different values: %q vs %q", values(first), values(second))
	}
	for _, rc := range first {
		if rc.Error != "" {
			t.Fatalf("unexpected per-code error: %q", rc.Error)
		}
		if rc.Value != "GIFT-111" && rc.Value != "GIFT-222" {
			t.Fatalf("unexpected value %q", rc.Value)
		}
	}
}

func TestRevealCorruptCiphertextMarksOnlyThatCode(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "p1", []string{"OK-CODE", "BAD-CODE"}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := s.Reserve(ctx, "p1", 2, "ord-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := s.Finalize(ctx, "ord-1", "u1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Corrupt one ciphertext in place.
	repo.mu.Lock()
	corrupted := false
	for _, c := range repo.codes {
		if c.OrderID == "ord-1" && !corrupted {
			c.Ciphertext = base64.StdEncoding.EncodeToString([]byte("garbage"))
			corrupted = true
		}
	}
	repo.mu.Unlock()

	out, err := s.Reveal(ctx, "ord-1")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	var okCount, errCount int
	for _, rc := range out {
		if rc.Error != "" {
			errCount++
			if rc.Value != "" {
				t.Fatalf("errored code leaked a value: %+v", rc)
			}
		} else {
			okCount++
		}
	}
	if okCount != 1 || errCount != 1 {
		t.Fatalf("expected 1 ok and 1 error marker, got %d/%d", okCount, errCount)
	}
}

func TestReleaseReturnsCodesToPool(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "p1", []string{"A", "B"}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := s.Reserve(ctx, "p1", 2, "ord-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if n, _ := s.CountAvailable(ctx, "p1"); n != 0 {
		t.Fatalf("expected 0 available after reserve, got %d", n)
	}

	if err := s.Release(ctx, "ord-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if n, _ := s.CountAvailable(ctx, "p1"); n != 2 {
		t.Fatalf("expected 2 available after release, got %d", n)
	}
}
