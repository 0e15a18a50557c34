// Package rules implements per-handler acceptance checks.
//
// A handler registration carries an ordered rule chain. The chain is a
// short-circuiting AND: every rule must accept before the handler
// runs, and an accepting rule may enrich the handler data for the
// rules and handler after it. Rules compose from the built-in
// constructors (Text, Commands, Payload and friends), from custom
// RuleFunc values, or by name through a Factory.
package rules

import (
	"context"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
)

// Result is a rule verdict: rejection, plain acceptance, or acceptance
// with data enrichment.
type Result struct {
	accepted   bool
	enrichment map[string]any
}

// Reject returns a rejecting result.
func Reject() Result {
	return Result{}
}

// Accept returns an accepting result without enrichment.
func Accept() Result {
	return Result{accepted: true}
}

// AcceptWith returns an accepting result whose enrichment is merged
// into the handler data before the next rule runs.
func AcceptWith(enrichment map[string]any) Result {
	return Result{accepted: true, enrichment: enrichment}
}

// Accepted reports whether the rule accepted the event.
func (r Result) Accepted() bool {
	return r.accepted
}

// Enrichment returns the data to merge on acceptance, possibly nil.
func (r Result) Enrichment() map[string]any {
	return r.enrichment
}

// Rule decides whether a handler wants an event.
type Rule interface {
	Check(ctx context.Context, ev event.Event, data event.Data) (Result, error)
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc func(ctx context.Context, ev event.Event, data event.Data) (Result, error)

// Check implements Rule.
func (f RuleFunc) Check(ctx context.Context, ev event.Event, data event.Data) (Result, error) {
	return f(ctx, ev, data)
}

// EvaluateAll applies the chain in order. Enrichment from an accepting
// rule is merged into data immediately, so later rules and the handler
// observe it. The first rejection stops the chain. A rule error stops
// the chain and is returned; callers treat it as a rejection.
func EvaluateAll(ctx context.Context, rs []Rule, ev event.Event, data event.Data) (bool, error) {
	for _, r := range rs {
		res, err := r.Check(ctx, ev, data)
		if err != nil {
			return false, err
		}
		if !res.Accepted() {
			return false, nil
		}
		data.Merge(res.Enrichment())
	}
	return true, nil
}
