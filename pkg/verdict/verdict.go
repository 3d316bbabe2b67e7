// Package verdict carries the outcome of a single conformance check.
package verdict

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/ogcapi-features-ets/pkg/crs"
)

type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusSkip
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusSkip:
		return "skip"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pass":
		*s = StatusPass
	case "fail":
		*s = StatusFail
	case "skip":
		*s = StatusSkip
	default:
		return fmt.Errorf("unknown verdict status %q", b)
	}
	return nil
}

// Result is the outcome of one check. Reason is empty for passes.
type Result struct {
	Check  string `json:"check"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func Pass() Result { return Result{Status: StatusPass} }

func Failf(format string, args ...any) Result {
	return Result{Status: StatusFail, Reason: fmt.Sprintf(format, args...)}
}

func Skipf(format string, args ...any) Result {
	return Result{Status: StatusSkip, Reason: fmt.Sprintf(format, args...)}
}

// Named returns a copy of r attributed to check.
func (r Result) Named(check string) Result {
	r.Check = check
	return r
}

func (r Result) Passed() bool  { return r.Status == StatusPass }
func (r Result) Failed() bool  { return r.Status == StatusFail }
func (r Result) Skipped() bool { return r.Status == StatusSkip }

func (r Result) String() string {
	if r.Reason == "" {
		return fmt.Sprintf("%s: %s", r.Check, r.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Check, r.Status, r.Reason)
}

// FromError turns an interpretation error into a verdict: identifiers the
// engine cannot interpret skip, anything else fails.
func FromError(err error) Result {
	switch {
	case err == nil:
		return Pass()
	case errors.Is(err, crs.ErrUnsupported):
		return Skipf("%v", err)
	default:
		return Failf("%v", err)
	}
}

// Summary counts results per status.
type Summary struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusSkip:
			s.Skipped++
		}
	}
	return s
}
