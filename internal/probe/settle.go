package probe

import (
	"sync"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// settler delivers exactly one outcome per probe. The response, the
// transport error and the timer all race to settle; only the first call
// wins and every later call is a no-op.
type settler struct {
	once sync.Once
	ch   chan domain.Outcome
}

func newSettler() *settler {
	return &settler{ch: make(chan domain.Outcome, 1)}
}

// settle reports whether o was the outcome that won.
func (s *settler) settle(o domain.Outcome) (won bool) {
	s.once.Do(func() {
		s.ch <- o
		won = true
	})
	return won
}

func (s *settler) done() <-chan domain.Outcome { return s.ch }
