// internal/pos/interpreter/strategy.go
package interpreter

import (
	"context"

	"pos-interpreter/internal/common/metrics"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/catalog"
	"pos-interpreter/internal/pos/coherence"
	"pos-interpreter/internal/pos/fastpath"
	"pos-interpreter/internal/pos/guardrail"
	"pos-interpreter/internal/pos/planner"
)

// Input is what every strategy sees for one command.
type Input struct {
	Text    string
	State   models.ConversationState
	Allowed catalog.AllowedActionSet
}

// Outcome is a strategy's answer.
type Outcome struct {
	Actions  []models.Action
	Strategy string
	Rule     string // fast-path rule, when one answered
	PromptFP string
	Fallback bool
}

// Strategy turns a command into actions. ok=false passes the command on to
// the next strategy.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, in Input) (Outcome, bool)
}

// PaymentLister supplies enabled payment method names. It never fails.
type PaymentLister interface {
	Names(ctx context.Context) []string
}

// --- Deterministic ---

// FastPathStrategy answers with the deterministic rules. Its output skips
// the guardrails but an invoice without payment is still never confirmed.
type FastPathStrategy struct {
	Payments PaymentLister
}

func (FastPathStrategy) Name() string { return "fastpath" }

func (s FastPathStrategy) Apply(ctx context.Context, in Input) (Outcome, bool) {
	actions, rule, ok := fastpath.MatchRule(in.Text, in.State, in.Allowed)
	if !ok {
		return Outcome{}, false
	}
	metrics.FastPathMatches.WithLabelValues(rule).Inc()
	if in.State.NeedsPaymentFirst() {
		actions = coherence.PaymentFirst(in.State, actions, paymentNames(ctx, s.Payments))
	}
	return Outcome{Actions: actions, Strategy: "fastpath", Rule: rule}, true
}

func paymentNames(ctx context.Context, p PaymentLister) []string {
	if p == nil {
		return []string{}
	}
	return p.Names(ctx)
}

// --- Model-backed ---

// PlannerStrategy asks the planner and passes its candidates through the
// guardrails and the coherence pass. It always answers.
type PlannerStrategy struct {
	planner  *planner.Planner
	guard    *guardrail.Engine
	payments PaymentLister
}

func NewPlannerStrategy(p *planner.Planner, guard *guardrail.Engine, payments PaymentLister) *PlannerStrategy {
	return &PlannerStrategy{planner: p, guard: guard, payments: payments}
}

func (s *PlannerStrategy) Name() string { return "planner" }

func (s *PlannerStrategy) Apply(ctx context.Context, in Input) (Outcome, bool) {
	methods := paymentNames(ctx, s.payments)

	res := s.planner.Plan(ctx, planner.Request{
		Text:           in.Text,
		State:          in.State,
		Allowed:        in.Allowed,
		PaymentMethods: methods,
	})

	out := Outcome{
		Strategy: "planner",
		PromptFP: res.Fingerprint,
		Fallback: res.Fallback,
	}
	// The fallback search echoes the raw text and skips the filters.
	if res.Fallback {
		out.Actions = res.Actions
		return out, true
	}

	safe := s.guard.Filter(in.Text, in.State, in.Allowed, res.Actions)
	out.Actions = coherence.Apply(in.State, safe, methods)
	return out, true
}
