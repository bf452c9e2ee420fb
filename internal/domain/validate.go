package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"go.uber.org/multierr"
)

// ErrMalformed marks a stored check that cannot be probed as-is.
var ErrMalformed = errors.New("malformed check")

const (
	phoneLen       = 11
	minTimeoutSecs = 1
	maxTimeoutSecs = 5
)

// ParseCheck decodes a stored check record and validates every field on its
// own. Mandatory fields that fail are all reported; state and lastChecked
// fall back to "down" and "never probed". This is the one place legacy or
// partially populated records get normalized.
func ParseCheck(data []byte) (*Check, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	var (
		c    Check
		errs error
	)
	bad := func(field, why string) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s %s", ErrMalformed, field, why))
	}

	var ok bool
	if c.ID, ok = trimmed(fields["id"]); !ok {
		bad("id", "must be a non-empty string")
	}
	if c.UserPhone, ok = trimmed(fields["userPhone"]); !ok || len(c.UserPhone) != phoneLen {
		bad("userPhone", fmt.Sprintf("must be %d characters", phoneLen))
	}
	if p, _ := trimmed(fields["protocol"]); slices.Contains(protocols, Protocol(p)) {
		c.Protocol = Protocol(p)
	} else {
		bad("protocol", "must be http or https")
	}
	if c.URL, ok = trimmed(fields["url"]); !ok {
		bad("url", "must be a non-empty string")
	}
	if m, _ := trimmed(fields["method"]); slices.Contains(methods, Method(m)) {
		c.Method = Method(m)
	} else {
		bad("method", "must be one of get, post, put, delete")
	}
	if err := json.Unmarshal(fields["successCodes"], &c.SuccessCodes); err != nil || len(c.SuccessCodes) == 0 {
		c.SuccessCodes = nil
		bad("successCodes", "must be a non-empty list of integers")
	}
	if n, ok := integer(fields["timeoutSeconds"]); ok && n >= minTimeoutSecs && n <= maxTimeoutSecs {
		c.TimeoutSeconds = int(n)
	} else {
		bad("timeoutSeconds", fmt.Sprintf("must be an integer in [%d,%d]", minTimeoutSecs, maxTimeoutSecs))
	}

	c.State = StateDown
	if s, _ := trimmed(fields["state"]); State(s) == StateUp {
		c.State = StateUp
	}
	var last float64
	if json.Unmarshal(fields["lastChecked"], &last) == nil && last > 0 {
		c.LastChecked = Millis(last)
	}

	if errs != nil {
		return nil, errs
	}
	return &c, nil
}

// Validate runs a typed check through the same rules as stored records.
func (c *Check) Validate() error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = ParseCheck(b)
	return err
}

func trimmed(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func integer(raw json.RawMessage) (int64, bool) {
	var f float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
