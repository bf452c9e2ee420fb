package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// maxDrain bounds how much of a response body is read before closing.
const maxDrain = 64 << 10

// Executor issues one request per check using the client for the check's
// protocol. It never retries; a failed probe simply reads as down until
// the next cycle.
type Executor struct {
	Logger *zap.Logger

	clients map[domain.Protocol]*http.Client
	tlsConf *tls.Config
}

type Option func(*Executor)

// WithTLSConfig sets the TLS configuration of the https client.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(e *Executor) { e.tlsConf = cfg }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.Logger = l }
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.clients = map[domain.Protocol]*http.Client{
		domain.ProtocolHTTP:  newClient(nil),
		domain.ProtocolHTTPS: newClient(e.tlsConf),
	}
	return e
}

func newClient(tlsConf *tls.Config) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConf != nil {
		tr.TLSClientConfig = tlsConf.Clone()
	}
	return &http.Client{
		Transport: tr,
		// A redirect is an answer: its status code is what gets evaluated.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Probe runs a single request for c and returns its settled outcome. The
// check's timeout bounds connect and the whole exchange; when it fires
// first the in-flight request is cancelled and the outcome is a timeout.
func (e *Executor) Probe(ctx context.Context, c *domain.Check) domain.Outcome {
	start := time.Now()
	s := newSettler()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := time.AfterFunc(c.Timeout(), func() {
		s.settle(domain.Outcome{
			Error:  domain.ErrorTimeout,
			Detail: fmt.Sprintf("no response within %s", c.Timeout()),
		})
		cancel()
	})
	defer timer.Stop()

	go e.do(ctx, c, s)

	out := <-s.done()
	out.LatencyMS = time.Since(start).Milliseconds()

	e.Logger.Debug("probe_settled",
		zap.String("check_id", c.ID),
		zap.String("target", c.Target()),
		zap.Int("status", out.ResponseCode),
		zap.String("error", string(out.Error)),
		zap.Int64("latency_ms", out.LatencyMS),
	)
	return out
}

func (e *Executor) do(ctx context.Context, c *domain.Check, s *settler) {
	client, ok := e.clients[c.Protocol]
	if !ok {
		s.settle(failed(domain.ErrorNetwork, fmt.Errorf("unsupported protocol %q", c.Protocol)))
		return
	}
	u, err := url.Parse(c.Target())
	if err != nil || u.Hostname() == "" {
		if err == nil {
			err = fmt.Errorf("no host in %q", c.Target())
		}
		s.settle(failed(domain.ErrorNetwork, err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, c.HTTPMethod(), u.String(), nil)
	if err != nil {
		s.settle(failed(domain.ErrorNetwork, err))
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		s.settle(failed(classify(err), err))
		return
	}
	defer resp.Body.Close()

	s.settle(domain.Outcome{ResponseCode: resp.StatusCode})
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
}

func failed(kind domain.ProbeError, err error) domain.Outcome {
	return domain.Outcome{Error: kind, Detail: err.Error()}
}

// classify maps a transport error onto the outcome error kinds.
func classify(err error) domain.ProbeError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ErrorTimeout
	}
	return domain.ErrorNetwork
}
