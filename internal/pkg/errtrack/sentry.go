// Package errtrack reports unexpected errors to Sentry. A Tracker built
// without a DSN is a no-op.
package errtrack

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type Options struct {
	DSN         string
	Environment string
	Release     string
}

type Tracker struct {
	enabled bool
}

func New(opts Options) (*Tracker, error) {
	if opts.DSN == "" {
		return &Tracker{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return &Tracker{}, fmt.Errorf("sentry init: %w", err)
	}
	return &Tracker{enabled: true}, nil
}

func (t *Tracker) Enabled() bool {
	return t != nil && t.enabled
}

func (t *Tracker) CaptureException(err error) {
	if !t.Enabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureRequestError tags the event with the failing route.
func (t *Tracker) CaptureRequestError(err error, method, path string) {
	if !t.Enabled() || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("http.method", method)
		scope.SetTag("http.route", path)
		sentry.CaptureException(err)
	})
}

// RecoverPanic reports a recovered panic value.
func (t *Tracker) RecoverPanic(v any) {
	if !t.Enabled() {
		return
	}
	sentry.CurrentHub().Recover(v)
}

func (t *Tracker) Flush(timeout time.Duration) bool {
	if !t.Enabled() {
		return true
	}
	return sentry.Flush(timeout)
}
