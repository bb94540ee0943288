// Package advice asks an external text-generation service for spending advice about
// one month's figures.
package advice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("advice service is not configured")

// Generator turns a prompt into text. Implementations make exactly one attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Disabled is the Generator used when no advice service is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// Requester allows one advice request in flight at a time.
type Requester struct {
	generator Generator
	busy      atomic.Bool
}

func NewRequester(generator Generator) *Requester {
	if generator == nil {
		generator = Disabled{}
	}
	return &Requester{generator: generator}
}

// Busy reports whether a request is outstanding.
func (r *Requester) Busy() bool {
	return r.busy.Load()
}

// Request returns advice for view. A month with no income and no expense short-circuits
// with core.ErrInsufficientData without contacting the service, and a call made while
// another is outstanding fails with core.ErrAdviceBusy. Every failure is a *core.AdviceError.
func (r *Requester) Request(ctx context.Context, view report.MonthlyView, monthLabel string) (string, error) {
	if !view.HasData() {
		return "", &core.AdviceError{Err: core.ErrInsufficientData}
	}
	if !r.busy.CompareAndSwap(false, true) {
		return "", &core.AdviceError{Err: core.ErrAdviceBusy}
	}
	defer r.busy.Store(false)

	slog.InfoContext(ctx, "Requesting advice", "component", "advice", "month", monthLabel)
	text, err := r.generator.Generate(ctx, BuildPrompt(view, monthLabel))
	if err != nil {
		slog.WarnContext(ctx, "Advice request failed", "component", "advice", "month", monthLabel, "error", err)
		return "", &core.AdviceError{Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &core.AdviceError{Err: core.ErrEmptyAdvice}
	}
	return text, nil
}
