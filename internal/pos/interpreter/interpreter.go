// internal/pos/interpreter/interpreter.go

// Package interpreter turns one spoken or typed POS command into a safe,
// ordered list of UI actions. A deterministic matcher answers the common
// commands; everything else goes through the planner, the guardrails and
// the coherence pass.
package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pos-interpreter/internal/common/config"
	"pos-interpreter/internal/common/llm"
	"pos-interpreter/internal/common/metrics"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/audit"
	"pos-interpreter/internal/pos/catalog"
	"pos-interpreter/internal/pos/guardrail"
	"pos-interpreter/internal/pos/normalize"
	"pos-interpreter/internal/pos/planner"
	"pos-interpreter/pkg/registry"
)

// ErrLLMConfigMissing is the only error Interpret returns.
var ErrLLMConfigMissing = errors.New("LLM_CONFIG_MISSING")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// AuditRecorder persists one interpreted command.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Dependencies are the collaborators. Provider nil means the model is not
// configured; Payments, Audit and Registry are optional.
type Dependencies struct {
	Provider llm.Provider
	Payments PaymentLister
	Audit    AuditRecorder
	Registry *registry.Registry
}

// Request is one command. TraceID is generated when empty.
type Request struct {
	TraceID string
	Text    string
	State   models.ConversationState
	Catalog json.RawMessage
}

// Result is the response plus what the audit log and workers report.
type Result struct {
	Actions    []models.Action
	TraceID    string
	FastPath   bool
	PromptFP   string
	Fallback   bool
	Duration   time.Duration
	Allowed    catalog.AllowedActionSet
	Violations []string
}

type Interpreter struct {
	strategies []Strategy
	configured bool
	registry   *registry.Registry
	audit      AuditRecorder
	log        Logger
}

// New wires the default strategies: fast path first, then the planner.
func New(cfg config.InterpretConfig, deps Dependencies, log Logger) *Interpreter {
	it := &Interpreter{
		configured: deps.Provider != nil,
		registry:   deps.Registry,
		audit:      deps.Audit,
		log:        log,
	}
	it.strategies = []Strategy{FastPathStrategy{Payments: deps.Payments}}
	if deps.Provider != nil {
		p := planner.New(deps.Provider, PlannerConfig(cfg.Planner), log)
		guard := guardrail.NewEngine(log, metrics.ObserveGuardrailDrop)
		it.strategies = append(it.strategies, NewPlannerStrategy(p, guard, deps.Payments))
	}
	return it
}

// NewWithStrategies builds an interpreter over a custom chain.
func NewWithStrategies(strategies []Strategy, deps Dependencies, log Logger) *Interpreter {
	return &Interpreter{
		strategies: strategies,
		configured: true,
		registry:   deps.Registry,
		audit:      deps.Audit,
		log:        log,
	}
}

// PlannerConfig converts the configured sampling settings.
func PlannerConfig(c config.PlannerConfig) planner.Config {
	pc := planner.DefaultConfig()
	pc.Temperature = c.Temperature
	pc.TopP = c.TopP
	if c.Seed != 0 {
		pc.Seed = c.Seed
	}
	if c.MaxTokens > 0 {
		pc.MaxTokens = c.MaxTokens
	}
	if c.Timeout > 0 {
		pc.Timeout = time.Duration(c.Timeout) * time.Millisecond
	}
	return pc
}

// Interpret returns the safe action list for text.
func (it *Interpreter) Interpret(ctx context.Context, text string, state models.ConversationState, rawCatalog json.RawMessage) (models.InterpretResponse, error) {
	res, err := it.Run(ctx, Request{Text: text, State: state, Catalog: rawCatalog})
	if err != nil {
		return models.InterpretResponse{}, err
	}
	return models.InterpretResponse{Actions: res.Actions}, nil
}

// Run is Interpret with the audit details.
func (it *Interpreter) Run(ctx context.Context, req Request) (Result, error) {
	ctx, span := otel.Tracer("pos-interpreter/interpreter").Start(ctx, "interpret")
	defer span.End()

	start := time.Now()
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	text := strings.TrimSpace(req.Text)
	allowed := catalog.Parse(req.Catalog)
	span.SetAttributes(attribute.String("trace_id", traceID))

	if !it.configured {
		it.log.Error("model credentials are not configured", map[string]interface{}{
			"trace_id": traceID,
		})
		return Result{TraceID: traceID, Allowed: allowed}, ErrLLMConfigMissing
	}

	in := Input{Text: text, State: req.State, Allowed: allowed}
	var out Outcome
	for _, s := range it.strategies {
		if o, ok := s.Apply(ctx, in); ok {
			out = o
			break
		}
	}

	actions := restrict(out.Actions, allowed)
	res := Result{
		Actions:  actions,
		TraceID:  traceID,
		FastPath: out.Strategy == "fastpath",
		PromptFP: out.PromptFP,
		Fallback: out.Fallback,
		Duration: time.Since(start),
		Allowed:  allowed,
	}
	res.Violations = it.checkContracts(traceID, actions)

	span.SetAttributes(
		attribute.String("interpret.strategy", out.Strategy),
		attribute.Int("interpret.actions", len(actions)),
	)
	it.log.Info("command interpreted", map[string]interface{}{
		"trace_id":    traceID,
		"text":        text,
		"strategy":    out.Strategy,
		"rule":        out.Rule,
		"prompt_fp":   out.PromptFP,
		"fallback":    out.Fallback,
		"actions":     models.ActionNames(actions),
		"duration_ms": res.Duration.Milliseconds(),
	})

	it.record(ctx, text, res)
	return res, nil
}

// restrict drops anything outside the allowed set. The result is never nil.
func restrict(actions []models.Action, allowed catalog.AllowedActionSet) []models.Action {
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if allowed.Has(a.Action) {
			out = append(out, a)
		}
	}
	return out
}

func (it *Interpreter) checkContracts(traceID string, actions []models.Action) []string {
	if it.registry == nil {
		return nil
	}
	var violations []string
	for _, a := range actions {
		err := it.registry.CheckParams(a)
		if err == nil || errors.Is(err, registry.ErrUnknownAction) {
			continue
		}
		metrics.ContractViolations.WithLabelValues(a.Action).Inc()
		violations = append(violations, a.Action)
		it.log.Warn("action breaks its registry contract", map[string]interface{}{
			"trace_id": traceID,
			"action":   a.Action,
			"error":    err.Error(),
		})
	}
	return violations
}

func (it *Interpreter) record(ctx context.Context, text string, res Result) {
	if it.audit == nil {
		return
	}
	err := it.audit.Record(ctx, audit.Entry{
		TraceID:        res.TraceID,
		Text:           text,
		NormalizedText: normalize.Text(text),
		Actions:        res.Actions,
		FastPath:       res.FastPath,
		PromptFP:       res.PromptFP,
		Duration:       res.Duration,
	})
	if err != nil {
		it.log.Warn("audit record failed", map[string]interface{}{
			"trace_id": res.TraceID,
			"error":    err.Error(),
		})
	}
}
