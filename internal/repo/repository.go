package repo

//go:generate mockgen -destination=../mocks/mock_repo.go -package=mocks github.com/hamed0406/uptimeworker/internal/repo CheckStore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

var (
	ErrNotFound  = errors.New("check not found")
	ErrExists    = errors.New("check already exists")
	ErrInvalidID = errors.New("invalid check id")
)

// CheckStore is the key-value contract the worker depends on. Records are
// opaque JSON documents keyed by check id; decoding and validation happen
// in the worker so malformed records can be skipped instead of failing a
// whole listing.
type CheckStore interface {
	List(ctx context.Context) ([]string, error)
	// Read returns ErrNotFound when id is absent.
	Read(ctx context.Context, id string) ([]byte, error)
	// Update replaces an existing record; ErrNotFound when id is absent.
	Update(ctx context.Context, id string, data []byte) error
}

// AdminStore adds the lifecycle operations used by tooling. The worker
// never creates or deletes checks.
type AdminStore interface {
	CheckStore
	Create(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// SaveCheck marshals c and writes it back under its id.
func SaveCheck(ctx context.Context, s CheckStore, c *domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode check %s: %w", c.ID, err)
	}
	return s.Update(ctx, c.ID, b)
}

// CreateCheck stores a brand-new check record.
func CreateCheck(ctx context.Context, s AdminStore, c *domain.Check) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode check %s: %w", c.ID, err)
	}
	return s.Create(ctx, c.ID, b)
}

// LoadCheck reads and validates a single record.
func LoadCheck(ctx context.Context, s CheckStore, id string) (*domain.Check, error) {
	b, err := s.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.ParseCheck(b)
}

// ValidID rejects ids that could escape a key namespace (path separators,
// dot segments) or are blank.
func ValidID(id string) error {
	if strings.TrimSpace(id) == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
