package probe

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

func checkFor(s *httptest.Server, proto domain.Protocol, path string) *domain.Check {
	host := strings.TrimPrefix(strings.TrimPrefix(s.URL, "https://"), "http://")
	return &domain.Check{
		ID:             "c1",
		UserPhone:      "55512345678",
		Protocol:       proto,
		URL:            host + path,
		Method:         domain.MethodGet,
		SuccessCodes:   []int{200},
		TimeoutSeconds: 1,
		State:          domain.StateDown,
	}
}

func TestProbe_StatusOK(t *testing.T) {
	var gotMethod, gotPath, gotQuery string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	c := checkFor(s, domain.ProtocolHTTP, "/health?deep=1")
	c.Method = domain.MethodPost
	out := NewExecutor().Probe(context.Background(), c)
	if out.Failed() || out.ResponseCode != 200 {
		t.Fatalf("want 200 without error, got %+v", out)
	}
	if gotMethod != http.MethodPost || gotPath != "/health" || gotQuery != "deep=1" {
		t.Fatalf("unexpected request: %s %s?%s", gotMethod, gotPath, gotQuery)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %d", out.LatencyMS)
	}
}

func TestProbe_Status500IsStillAResponse(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	out := NewExecutor().Probe(context.Background(), checkFor(s, domain.ProtocolHTTP, "/"))
	if out.Failed() || out.ResponseCode != 500 {
		t.Fatalf("want response code 500 and no error, got %+v", out)
	}
}

func TestProbe_RedirectNotFollowed(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer s.Close()

	out := NewExecutor().Probe(context.Background(), checkFor(s, domain.ProtocolHTTP, "/"))
	if out.ResponseCode != http.StatusMovedPermanently {
		t.Fatalf("want 301, got %+v", out)
	}
}

func TestProbe_HTTPSUsesTLSClient(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	}))
	defer s.Close()

	e := NewExecutor(WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	out := e.Probe(context.Background(), checkFor(s, domain.ProtocolHTTPS, "/"))
	if out.Failed() || out.ResponseCode != 204 {
		t.Fatalf("want 204 over https, got %+v", out)
	}

	// the plain client must not be able to speak to a TLS listener
	out = e.Probe(context.Background(), checkFor(s, domain.ProtocolHTTP, "/"))
	if out.ResponseCode == 204 {
		t.Fatalf("http probe against TLS server should not succeed: %+v", out)
	}
}

func TestProbe_TimeoutSettlesOnce(t *testing.T) {
	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(200)
	}))
	defer s.Close()
	defer close(release)

	start := time.Now()
	out := NewExecutor().Probe(context.Background(), checkFor(s, domain.ProtocolHTTP, "/"))
	if out.Error != domain.ErrorTimeout {
		t.Fatalf("want timeout, got %+v", out)
	}
	if out.ResponseCode != 0 {
		t.Fatalf("want no response code on timeout, got %d", out.ResponseCode)
	}
	if el := time.Since(start); el < 900*time.Millisecond || el > 3*time.Second {
		t.Fatalf("timeout not honored, took %v", el)
	}
}

func TestProbe_NetworkError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := checkFor(s, domain.ProtocolHTTP, "/")
	s.Close() // nothing listens on the port anymore

	out := NewExecutor().Probe(context.Background(), c)
	if out.Error != domain.ErrorNetwork {
		t.Fatalf("want network-error, got %+v", out)
	}
	if out.Detail == "" {
		t.Fatalf("want error detail")
	}
}

func TestProbe_HijackedConnectionIsNetworkError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer s.Close()

	out := NewExecutor().Probe(context.Background(), checkFor(s, domain.ProtocolHTTP, "/"))
	if out.Error != domain.ErrorNetwork {
		t.Fatalf("want network-error, got %+v", out)
	}
}

func TestSettler_FirstEventWins(t *testing.T) {
	s := newSettler()
	if !s.settle(domain.Outcome{ResponseCode: 200}) {
		t.Fatal("first settle should win")
	}
	if s.settle(domain.Outcome{Error: domain.ErrorTimeout}) {
		t.Fatal("second settle should be a no-op")
	}
	if s.settle(domain.Outcome{Error: domain.ErrorNetwork}) {
		t.Fatal("third settle should be a no-op")
	}

	got := <-s.done()
	if got.ResponseCode != 200 || got.Failed() {
		t.Fatalf("want the response outcome, got %+v", got)
	}
	select {
	case extra := <-s.done():
		t.Fatalf("second outcome delivered: %+v", extra)
	default:
	}
}

func TestSettler_ConcurrentEventsDeliverExactlyOne(t *testing.T) {
	s := newSettler()
	wins := make(chan bool, 3)
	events := []domain.Outcome{
		{ResponseCode: 200},
		{Error: domain.ErrorNetwork},
		{Error: domain.ErrorTimeout},
	}
	for _, o := range events {
		go func(o domain.Outcome) { wins <- s.settle(o) }(o)
	}
	n := 0
	for range events {
		if <-wins {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("want exactly one winner, got %d", n)
	}
	<-s.done()
	select {
	case extra := <-s.done():
		t.Fatalf("more than one outcome delivered: %+v", extra)
	default:
	}
}
