// Package printer submits composed cards to a CUPS spooler, trying a primary
// target first and an ordered fallback list after it.
package printer

import (
	"context"
	"fmt"
)

// Kind classifies dispatch failures.
type Kind int

const (
	// KindNotFound means no configured target exists in the spooler.
	KindNotFound Kind = iota
	// KindSubmissionFailed means at least one target exists but every
	// submission was rejected.
	KindSubmissionFailed
)

func (k Kind) String() string {
	if k == KindNotFound {
		return "not_found"
	}
	return "submission_failed"
}

// Error carries the classification plus the last spooler diagnostic so an
// operator sees why the job went nowhere.
type Error struct {
	Kind   Kind
	Target string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("printer %s", e.Kind)
	if e.Target != "" {
		msg += ": " + e.Target
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options are passed through to the spooler verbatim; the dispatcher does
// not interpret print quality semantics.
type Options struct {
	Copies     int
	PaperSize  string
	Resolution string
	MediaType  string
	Quality    string
	Borderless bool
	Custom     map[string]string
}

// Job is the outcome of one accepted submission.
type Job struct {
	ID     string
	Target string
}

// Dispatcher submits an image file to a print target.
type Dispatcher interface {
	Submit(ctx context.Context, imagePath string, opts Options) (Job, error)
	// Available returns the first configured target the spooler reports
	// as present and enabled, for health reporting.
	Available(ctx context.Context) (string, error)
}
