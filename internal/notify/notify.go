// Package notify delivers alert messages through SMS, chat webhooks or the
// service log.
package notify

//go:generate mockgen -destination=../mocks/mock_notify.go -package=mocks github.com/hamed0406/uptimeworker/internal/notify Gateway

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Gateway sends one text message to a destination: a phone number for SMS,
// a label for chat sinks.
type Gateway interface {
	Send(ctx context.Context, destination, message string) error
}

// Multi fans a message out to every gateway and combines their errors.
type Multi []Gateway

func (m Multi) Send(ctx context.Context, destination, message string) error {
	var err error
	for _, g := range m {
		if g == nil {
			continue
		}
		err = multierr.Append(err, g.Send(ctx, destination, message))
	}
	return err
}

// LogGateway writes alerts to the service log. It is the fallback when no
// delivery channel is configured.
type LogGateway struct {
	Logger *zap.Logger
}

func (g LogGateway) Send(_ context.Context, destination, message string) error {
	log := g.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("alert",
		zap.String("destination", destination),
		zap.String("message", message),
	)
	return nil
}
