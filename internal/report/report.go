// Package report summarises one populate run.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Failure is one symbol that was not written, with the reason shown to the user.
type Failure struct {
	Symbol string
	Reason string
	Detail string
}

// Report is the outcome of a run. It is built once at the end of the run.
type Report struct {
	Requested int
	Succeeded []string
	Failed    []Failure
	Elapsed   time.Duration

	// Note explains runs that did nothing on purpose, such as a weekend "today" run.
	Note string
}

// AllFailed reports whether symbols were requested and none succeeded.
func (r Report) AllFailed() bool {
	return r.Requested > 0 && len(r.Succeeded) == 0
}

// FailedSymbols lists the failed symbols for a follow-up rerun.
func (r Report) FailedSymbols() []string {
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Symbol)
	}
	return out
}

// ByReason groups the failed symbols by reason.
func (r Report) ByReason() map[string][]string {
	out := make(map[string][]string)
	for _, f := range r.Failed {
		out[f.Reason] = append(out[f.Reason], f.Symbol)
	}
	return out
}

// Summary writes a human readable summary of the run to w.
func (r Report) Summary(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Requested: %d  Succeeded: %d  Failed: %d  Elapsed: %s\n",
		r.Requested, len(r.Succeeded), len(r.Failed), r.Elapsed.Round(time.Millisecond))
	if r.Note != "" {
		fmt.Fprintf(&b, "%s\n", r.Note)
	}

	if len(r.Failed) > 0 {
		groups := r.ByReason()
		reasons := make([]string, 0, len(groups))
		for reason := range groups {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		b.WriteString("Failures:\n")
		for _, f := range r.Failed {
			if f.Detail != "" {
				fmt.Fprintf(&b, "  %-12s %-14s %s\n", f.Symbol, f.Reason, f.Detail)
			} else {
				fmt.Fprintf(&b, "  %-12s %s\n", f.Symbol, f.Reason)
			}
		}
		for _, reason := range reasons {
			fmt.Fprintf(&b, "%s: %d\n", reason, len(groups[reason]))
		}
		fmt.Fprintf(&b, "Rerun with: -symbols %s\n", strings.Join(r.FailedSymbols(), ","))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
