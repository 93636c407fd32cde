// internal/pos/guardrail/guardrail.go

// Package guardrail is the safety layer between candidate actions and the
// front end. It is an ordered chain of independent rules; each one removes or
// rewrites actions that lack explicit user intent or valid preconditions.
package guardrail

import (
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/catalog"
	"pos-interpreter/internal/pos/normalize"
)

// Logger is the logging surface the engine needs.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Context is what every rule may look at. Text is the normalized utterance.
type Context struct {
	Text    string
	State   models.ConversationState
	Allowed catalog.AllowedActionSet
}

// Rule is one step of the chain. Apply must not mutate its input slice or the
// params maps it holds.
type Rule struct {
	Name  string
	Apply func(ctx Context, actions []models.Action) []models.Action
}

// DropObserver is told how many actions a rule removed.
type DropObserver func(rule string, dropped int)

// Engine runs a rule chain.
type Engine struct {
	rules    []Rule
	log      Logger
	observer DropObserver
}

// NewEngine builds an engine over the default chain. log may be nil.
func NewEngine(log Logger, observer DropObserver) *Engine {
	return &Engine{rules: DefaultRules(), log: log, observer: observer}
}

// Rules returns the chain in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Filter turns candidate actions into safe actions. It never fails.
func (e *Engine) Filter(text string, state models.ConversationState, allowed catalog.AllowedActionSet, candidates []models.Action) []models.Action {
	ctx := Context{
		Text:    normalize.Text(text),
		State:   state,
		Allowed: allowed,
	}

	actions := candidates
	for _, r := range e.rules {
		before := len(actions)
		actions = r.Apply(ctx, actions)
		if dropped := before - len(actions); dropped > 0 {
			if e.observer != nil {
				e.observer(r.Name, dropped)
			}
			if e.log != nil {
				e.log.Info("guardrail dropped actions", map[string]interface{}{
					"rule":    r.Name,
					"dropped": dropped,
				})
			}
		}
	}
	if actions == nil {
		actions = []models.Action{}
	}
	return actions
}

var defaultEngine = &Engine{rules: DefaultRules()}

// Filter runs the default chain without logging or metrics.
func Filter(text string, state models.ConversationState, allowed catalog.AllowedActionSet, candidates []models.Action) []models.Action {
	return defaultEngine.Filter(text, state, allowed, candidates)
}
