// internal/api/bridge.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/interpreter"
	"pos-interpreter/internal/pos/resolver"
)

// Interpreter runs one command through the pipeline.
type Interpreter interface {
	Run(ctx context.Context, req interpreter.Request) (interpreter.Result, error)
}

// PaymentMethods lists enabled modes of payment.
type PaymentMethods interface {
	Methods(ctx context.Context) ([]models.PaymentMethod, error)
	Invalidate()
}

// Resolver ranks catalog items for a query.
type Resolver interface {
	ResolveQuery(ctx context.Context, query string) (models.ResolutionResult, error)
}

// Dependencies are the bridge collaborators. Resolver and Payments may be
// nil; their routes then answer 503.
type Dependencies struct {
	Interpreter Interpreter
	Payments    PaymentMethods
	Resolver    Resolver
	Blend       resolver.BlendConfig
}

type ResolveRequest struct {
	Query         string   `json:"query"`
	LLMConfidence *float64 `json:"llm_confidence,omitempty"`
}

type ResolveResponse struct {
	models.ResolutionResult
	Confidence float64 `json:"confidence"`
	Decision   string  `json:"decision"`
}

type BridgeController struct {
	deps Dependencies
	opts Options
	log  Logger
}

func NewBridgeController(deps Dependencies, opts Options, log Logger) *BridgeController {
	return &BridgeController{deps: deps, opts: opts, log: log}
}

func (b *BridgeController) RegisterRoutes(r fiber.Router) {
	r.Post("/interpret", b.Interpret)
	r.Get("/payment_methods", b.PaymentMethods)
	r.Post("/resolve", b.Resolve)
	r.Get("/health", b.Health)
	r.Post("/cache_clear", b.CacheClear)
}

// Interpret answers {actions} and nothing else.
func (b *BridgeController) Interpret(c *fiber.Ctx) error {
	var body models.InterpretRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}

	res, err := b.deps.Interpreter.Run(c.UserContext(), interpreter.Request{
		TraceID: TraceID(c),
		Text:    body.Text,
		State:   body.State,
		Catalog: body.Catalog,
	})
	if errors.Is(err, interpreter.ErrLLMConfigMissing) {
		return fiber.NewError(fiber.StatusInternalServerError, "model credentials are not configured")
	}
	if err != nil {
		return err
	}
	return c.JSON(models.InterpretResponse{Actions: res.Actions})
}

func (b *BridgeController) PaymentMethods(c *fiber.Ctx) error {
	if b.deps.Payments == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "ERP is not configured")
	}
	methods, err := b.deps.Payments.Methods(c.UserContext())
	if err != nil {
		b.log.Error("payment methods failed", map[string]interface{}{
			"trace_id": TraceID(c),
			"error":    err.Error(),
		})
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"message": methods})
}

func (b *BridgeController) Resolve(c *fiber.Ctx) error {
	if b.deps.Resolver == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "catalog search is not configured")
	}
	var body ResolveRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	if strings.TrimSpace(body.Query) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query is required")
	}

	res, err := b.deps.Resolver.ResolveQuery(c.UserContext(), body.Query)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	conf := b.deps.Blend.Blend(body.LLMConfidence, &res.ResolutionConfidence)
	return c.JSON(ResolveResponse{
		ResolutionResult: res,
		Confidence:       conf,
		Decision:         string(b.deps.Blend.Decide(conf)),
	})
}

func (b *BridgeController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":          true,
		"warehouse":   b.opts.Warehouse,
		"pos_profile": b.opts.POSProfile,
	})
}

// CacheClear drops the cached payment methods.
func (b *BridgeController) CacheClear(c *fiber.Ctx) error {
	if b.deps.Payments != nil {
		b.deps.Payments.Invalidate()
	}
	return c.JSON(fiber.Map{"ok": true, "size": 0})
}
