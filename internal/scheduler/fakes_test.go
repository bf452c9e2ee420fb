package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

// --- fakes ---

type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	readErr map[string]error
	updates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, readErr: map[string]error{}}
}

func (f *fakeStore) put(id string, raw string) { f.data[id] = []byte(raw) }

func (f *fakeStore) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.data))
	for id := range f.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) Read(ctx context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[id]; err != nil {
		return nil, err
	}
	b, ok := f.data[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (f *fakeStore) Update(ctx context.Context, id string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[id]; !ok {
		return repo.ErrNotFound
	}
	f.updates++
	f.data[id] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) check(t *testing.T, id string) *domain.Check {
	t.Helper()
	f.mu.Lock()
	raw := f.data[id]
	f.mu.Unlock()
	c, err := domain.ParseCheck(raw)
	if err != nil {
		t.Fatalf("stored check %s: %v", id, err)
	}
	return c
}

type fakeProber struct {
	mu      sync.Mutex
	calls   map[string]int
	outcome map[string]domain.Outcome
	fn      func(ctx context.Context, c *domain.Check) domain.Outcome
}

func newFakeProber() *fakeProber {
	return &fakeProber{calls: map[string]int{}, outcome: map[string]domain.Outcome{}}
}

func (f *fakeProber) Probe(ctx context.Context, c *domain.Check) domain.Outcome {
	f.mu.Lock()
	f.calls[c.ID]++
	o, ok := f.outcome[c.ID]
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, c)
	}
	if !ok {
		o = domain.Outcome{ResponseCode: 200, LatencyMS: 1}
	}
	return o
}

func (f *fakeProber) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeAudit struct {
	mu   sync.Mutex
	recs map[string][]domain.LogRecord
	err  error
}

func newFakeAudit() *fakeAudit { return &fakeAudit{recs: map[string][]domain.LogRecord{}} }

func (f *fakeAudit) Append(id string, rec domain.LogRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recs[id] = append(f.recs[id], rec)
	return nil
}

func (f *fakeAudit) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.recs {
		n += len(r)
	}
	return n
}

type sentAlert struct {
	id    string
	state domain.State
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentAlert
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, c *domain.Check, state domain.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentAlert{c.ID, state})
	return f.err
}

// --- helpers ---

var errBoom = errors.New("boom")

var fixedNow = time.UnixMilli(1700000000000)

// checkJSON renders a valid stored check; lastChecked 0 means never probed.
func checkJSON(id string, state domain.State, lastChecked int64) string {
	last := ""
	if lastChecked > 0 {
		last = fmt.Sprintf(`,"lastChecked":%d`, lastChecked)
	}
	return fmt.Sprintf(`{"id":%q,"userPhone":"15551234567","protocol":"http","url":"example.com/%s",`+
		`"method":"get","successCodes":[200],"timeoutSeconds":2,"state":%q%s}`, id, id, state, last)
}
