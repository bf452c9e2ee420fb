package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// Dispatcher turns a state change into one message to the check owner.
type Dispatcher struct {
	gw  Gateway
	log *zap.Logger
}

func NewDispatcher(gw Gateway, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{gw: gw, log: log}
}

// Message renders the alert text sent for check c entering state.
func Message(c *domain.Check, state domain.State) string {
	return fmt.Sprintf("Alert: your check for: %s %s is currently %s",
		c.HTTPMethod(), c.Target(), state)
}

// Notify makes exactly one delivery attempt. Failures are logged and
// returned; the caller decides whether they matter.
func (d *Dispatcher) Notify(ctx context.Context, c *domain.Check, state domain.State) error {
	msg := Message(c, state)
	if err := d.gw.Send(ctx, c.UserPhone, msg); err != nil {
		d.log.Warn("alert_send_error",
			zap.String("check_id", c.ID),
			zap.String("state", string(state)),
			zap.Error(err),
		)
		return fmt.Errorf("alert for check %s: %w", c.ID, err)
	}
	d.log.Info("alert_sent",
		zap.String("check_id", c.ID),
		zap.String("state", string(state)),
	)
	return nil
}
