package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/mocks"
	"github.com/hamed0406/uptimeworker/internal/notify"
)

func sampleCheck() *domain.Check {
	return &domain.Check{
		ID:             "abc123",
		UserPhone:      "15551234567",
		Protocol:       domain.ProtocolHTTPS,
		URL:            "example.com/health",
		Method:         domain.MethodPost,
		SuccessCodes:   []int{200},
		TimeoutSeconds: 3,
		State:          domain.StateUp,
		LastChecked:    1,
	}
}

func TestMessage(t *testing.T) {
	got := notify.Message(sampleCheck(), domain.StateDown)
	want := "Alert: your check for: POST https://example.com/health is currently down"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestDispatcher_SendsOnceToOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().
		Send(gomock.Any(), "15551234567", "Alert: your check for: POST https://example.com/health is currently down").
		Return(nil).
		Times(1)

	d := notify.NewDispatcher(gw, zap.NewNop())
	if err := d.Notify(context.Background(), sampleCheck(), domain.StateDown); err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func TestDispatcher_NoRetryOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	boom := errors.New("gateway unavailable")
	gw.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(boom).Times(1)

	core, logs := observer.New(zapcore.WarnLevel)
	d := notify.NewDispatcher(gw, zap.New(core))

	err := d.Notify(context.Background(), sampleCheck(), domain.StateUp)
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped gateway error, got %v", err)
	}
	if logs.FilterMessage("alert_send_error").Len() != 1 {
		t.Fatalf("want one alert_send_error entry, got %v", logs.All())
	}
}
