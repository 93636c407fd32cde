// internal/pos/planner/planner.go

// Package planner asks a language model for candidate actions. It never
// fails: any problem with the model call or its reply degrades to a single
// search for the raw text.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pos-interpreter/internal/common/llm"
	"pos-interpreter/internal/common/metrics"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/catalog"
)

var (
	ErrPlannerRequestFailed = errors.New("PLANNER_REQUEST_FAILED")
	ErrPlannerOutputInvalid = errors.New("PLANNER_OUTPUT_INVALID")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config holds the sampling settings sent with every request.
type Config struct {
	Temperature float64
	TopP        float64
	Seed        int
	MaxTokens   int
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{Seed: 7, MaxTokens: 120, Timeout: 30 * time.Second}
}

// Request is one planning call. PaymentMethods feeds the invoice payment rule.
type Request struct {
	Text           string
	State          models.ConversationState
	Allowed        catalog.AllowedActionSet
	PaymentMethods []string
}

// Result carries the candidates plus what is needed to audit the call.
type Result struct {
	Actions     []models.Action
	Fingerprint string
	Model       string
	Fallback    bool
	Err         error
}

type Planner struct {
	provider llm.Provider
	cfg      Config
	log      Logger
}

func New(provider llm.Provider, cfg Config, log Logger) *Planner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 120
	}
	return &Planner{provider: provider, cfg: cfg, log: log}
}

// Plan returns raw candidate actions for req. Candidates are not filtered;
// guardrails run afterwards.
func (p *Planner) Plan(ctx context.Context, req Request) Result {
	ctx, span := otel.Tracer("pos-interpreter/planner").Start(ctx, "planner.chat")
	defer span.End()

	extra := ""
	if req.State.NeedsPaymentFirst() {
		extra = PaymentRule(req.PaymentMethods)
	}
	messages, system := BuildMessages(req.Text, req.State, req.Allowed, extra)
	res := Result{Fingerprint: Fingerprint(system), Model: p.provider.Model()}

	p.log.Info("planner request", map[string]interface{}{
		"prompt_fp": res.Fingerprint,
		"model":     res.Model,
		"text":      req.Text,
		"catalog":   req.Allowed.Names(),
	})
	span.SetAttributes(
		attribute.String("planner.prompt_fp", res.Fingerprint),
		attribute.String("planner.model", res.Model),
	)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.provider.Chat(callCtx, messages,
		llm.WithTemperature(p.cfg.Temperature),
		llm.WithTopP(p.cfg.TopP),
		llm.WithSeed(p.cfg.Seed),
		llm.WithMaxTokens(p.cfg.MaxTokens),
		llm.WithJSONSchema(SchemaName, ActionsSchema()),
	)
	metrics.PlannerDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, llm.ErrTimeout) {
			outcome = "timeout"
		}
		return p.fallback(span, res, req.Text, outcome, fmt.Errorf("%w: %w", ErrPlannerRequestFailed, err))
	}

	p.log.Info("planner raw response", map[string]interface{}{
		"prompt_fp": res.Fingerprint,
		"raw":       raw,
	})

	actions, err := ParseActions(raw)
	if err != nil {
		return p.fallback(span, res, req.Text, "invalid", err)
	}

	metrics.PlannerRequests.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("planner.candidates", len(actions)))
	res.Actions = actions
	return res
}

func (p *Planner) fallback(span trace.Span, res Result, text, outcome string, err error) Result {
	metrics.PlannerRequests.WithLabelValues(outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	p.log.Error("planner failed, falling back to search", map[string]interface{}{
		"prompt_fp": res.Fingerprint,
		"outcome":   outcome,
		"error":     err.Error(),
	})
	res.Actions = Fallback(text)
	res.Fallback = true
	res.Err = err
	return res
}

// Fallback is the safe plan used whenever the model cannot be trusted.
func Fallback(text string) []models.Action {
	return []models.Action{models.NewAction("search", models.Params{"term": strings.TrimSpace(text)})}
}

// ParseActions decodes a model reply. Only an unreadable reply or one without
// an actions array is rejected; malformed items come back as candidates.
func ParseActions(raw string) ([]models.Action, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlannerOutputInvalid, err)
	}
	if vr := envelopeValidator.Validate(doc); !vr.Valid {
		return nil, fmt.Errorf("%w: %v", ErrPlannerOutputInvalid, vr.Error())
	}
	items, _ := doc.(map[string]interface{})["actions"].([]interface{})
	return models.CandidatesFromJSON(items), nil
}
