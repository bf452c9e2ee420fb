package domain

import (
	"slices"
	"strings"
	"time"
)

type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
)

// State is the binary up/down classification of a check.
type State string

const (
	StateUp   State = "up"
	StateDown State = "down"
)

var (
	protocols = []Protocol{ProtocolHTTP, ProtocolHTTPS}
	methods   = []Method{MethodGet, MethodPost, MethodPut, MethodDelete}
)

// Millis is a point in time stored as unix milliseconds, the format the
// check records and audit lines have always used on disk.
type Millis int64

func MillisOf(t time.Time) Millis { return Millis(t.UnixMilli()) }

func (m Millis) Time() time.Time { return time.UnixMilli(int64(m)).UTC() }

func (m Millis) IsZero() bool { return m <= 0 }

// Check is a registered endpoint plus the expectation it is probed against.
// Records are owned by the check store; the worker only rewrites State and
// LastChecked.
type Check struct {
	ID             string   `json:"id"`
	UserPhone      string   `json:"userPhone"`
	Protocol       Protocol `json:"protocol"`
	URL            string   `json:"url"`
	Method         Method   `json:"method"`
	SuccessCodes   []int    `json:"successCodes"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
	State          State    `json:"state"`
	LastChecked    Millis   `json:"lastChecked,omitempty"`
}

// Target is the probe URL, scheme included.
func (c *Check) Target() string {
	return string(c.Protocol) + "://" + c.URL
}

// Probed reports whether the check has completed at least one probe.
func (c *Check) Probed() bool { return !c.LastChecked.IsZero() }

// Accepts reports whether code is one of the check's success codes.
func (c *Check) Accepts(code int) bool {
	return slices.Contains(c.SuccessCodes, code)
}

// Timeout is the per-probe connect and overall deadline.
func (c *Check) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HTTPMethod returns the method in request form ("GET").
func (c *Check) HTTPMethod() string { return strings.ToUpper(string(c.Method)) }

// Clone returns a deep copy so a pipeline can mutate its own record.
func (c *Check) Clone() *Check {
	cp := *c
	cp.SuccessCodes = slices.Clone(c.SuccessCodes)
	return &cp
}
