package codes

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gamelo-backend/internal/codecrypt"
)

var (
	ErrInsufficientStock = errors.New("codes: insufficient stock")
	ErrInvalidArgument   = errors.New("codes: invalid argument")
	ErrNotFound          = errors.New("codes: not found")
)

// Repository is the atomic boundary for the pool.
//
// ReserveBatch MUST be all-or-nothing: flip exactly qty unused codes of the
// product to reserved, or flip none and report ErrInsufficientStock. Two
// concurrent reservations must never hand out the same code.
type Repository interface {
	InsertIfAbsent(ctx context.Context, c Code) (bool, error)
	ReserveBatch(ctx context.Context, productID string, qty int, orderID string, at time.Time) ([]Code, error)
	ReleaseReservation(ctx context.Context, orderID string) error
	AssignReserved(ctx context.Context, orderID, userID string, at time.Time) error
	ByOrder(ctx context.Context, orderID string) ([]Code, error)
	MarkRevealed(ctx context.Context, orderID string, at time.Time) error
	CountAvailable(ctx context.Context, productID string) (int, error)
}

// Service manages the encrypted code pool.
type Service struct {
	repo   Repository
	cipher *codecrypt.Cipher
	log    *slog.Logger
	clock  func() time.Time
}

func NewService(repo Repository, cipher *codecrypt.Cipher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cipher: cipher, log: log, clock: time.Now}
}

// Upload encrypts and inserts a batch of plaintext codes. Values are trimmed;
// empties are dropped. Duplicates (within the batch or against already stored
// codes of the same product, by plaintext fingerprint) are counted and skipped,
// never an error: suppliers resend overlapping files all the time.
func (s *Service) Upload(ctx context.Context, productID string, values []string) (UploadResult, error) {
	if productID == "" {
		return UploadResult{}, ErrInvalidArgument
	}

	var res UploadResult
	seen := make(map[string]struct{}, len(values))
	now := s.clock().UTC()

	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		fp := codecrypt.Fingerprint(value)
		if _, dup := seen[fp]; dup {
			res.Duplicates++
			continue
		}
		seen[fp] = struct{}{}

		ciphertext, err := s.cipher.Encrypt(value)
		if err != nil {
			return res, err
		}
		inserted, err := s.repo.InsertIfAbsent(ctx, Code{
			ID:          uuid.NewString(),
			ProductID:   productID,
			Ciphertext:  ciphertext,
			Fingerprint: fp,
			Status:      StatusUnused,
			CreatedAt:   now,
		})
		if err != nil {
			return res, err
		}
		if inserted {
			res.Added++
		} else {
			res.Duplicates++
		}
	}
	return res, nil
}

// Reserve takes qty codes out of the pool for an order. All-or-nothing.
func (s *Service) Reserve(ctx context.Context, productID string, qty int, orderID string) ([]Code, error) {
	if productID == "" || orderID == "" || qty <= 0 {
		return nil, ErrInvalidArgument
	}
	return s.repo.ReserveBatch(ctx, productID, qty, orderID, s.clock().UTC())
}

// Release puts an order's reserved codes back into the pool. Used when the
// order cannot be persisted after reservation.
func (s *Service) Release(ctx context.Context, orderID string) error {
	if orderID == "" {
		return ErrInvalidArgument
	}
	return s.repo.ReleaseReservation(ctx, orderID)
}

// Finalize tags an order's reserved codes with the buyer and moves them to
// assigned. Called once the order row is committed.
func (s *Service) Finalize(ctx context.Context, orderID, userID string) error {
	if orderID == "" || userID == "" {
		return ErrInvalidArgument
	}
	return s.repo.AssignReserved(ctx, orderID, userID, s.clock().UTC())
}

// Reveal decrypts an order's codes. Repeat calls return the same values: a
// buyer who loses the page can always come back for codes they paid for. The
// first call flips status to revealed and stamps revealed_at.
//
// A code whose ciphertext cannot be decrypted yields an error marker for that
// code only; the rest of the order still reveals.
func (s *Service) Reveal(ctx context.Context, orderID string) ([]RevealedCode, error) {
	if orderID == "" {
		return nil, ErrInvalidArgument
	}
	list, err := s.repo.ByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}

	out := make([]RevealedCode, 0, len(list))
	firstReveal := false
	for _, c := range list {
		if c.Status == StatusAssigned {
			firstReveal = true
		}
		value, err := s.cipher.Decrypt(c.Ciphertext)
		if err != nil {
			s.log.Error("code decrypt failed", "code_id", c.ID, "order_id", orderID, "error", err)
			out = append(out, RevealedCode{CodeID: c.ID, Error: "تعذر فك تشفير هذا الكود، يرجى التواصل مع الدعم"})
			continue
		}
		out = append(out, RevealedCode{CodeID: c.ID, Value: value})
	}

	if firstReveal {
		if err := s.repo.MarkRevealed(ctx, orderID, s.clock().UTC()); err != nil {
			// The buyer already has the values; stamping is best-effort.
			s.log.Error("mark revealed failed", "order_id", orderID, "error", err)
		}
	}
	return out, nil
}

// CountAvailable reports unused codes for a product.
func (s *Service) CountAvailable(ctx context.Context, productID string) (int, error) {
	if productID == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.CountAvailable(ctx, productID)
}
