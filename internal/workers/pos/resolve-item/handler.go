// internal/workers/pos/resolve-item/handler.go
package resolveitem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "pos-interpreter/internal/common/errors"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/resolver"
)

const (
	TaskType = "resolve-item"
)

var (
	ErrInvalidInput        = errors.New("INVALID_INPUT")
	ErrCatalogSearchFailed = resolver.ErrCatalogSearchFailed
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Resolver ranks catalog items against a query.
type Resolver interface {
	ResolveQuery(ctx context.Context, query string) (models.ResolutionResult, error)
}

type Handler struct {
	config       *Config
	resolver     Resolver
	logger       Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, r Resolver, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		resolver:     r,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job, jobError(fmt.Errorf("%w: parse input: %v", ErrInvalidInput, err), ""))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, jobError(err, input.Query))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if c := input.LLMConfidence; c != nil && (*c < 0 || *c > 1) {
		return nil, fmt.Errorf("%w: llmConfidence must be within [0, 1]", ErrInvalidInput)
	}

	res, err := h.resolver.ResolveQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	resConf := res.ResolutionConfidence
	conf := h.config.Blend.Blend(input.LLMConfidence, &resConf)
	decision := h.config.Blend.Decide(conf)

	h.logger.Info("item resolved", map[string]interface{}{
		"query":      query,
		"best":       res.Best.Code(),
		"candidates": len(res.Candidates),
		"confidence": conf,
		"decision":   string(decision),
	})

	return &Output{
		Best:                 res.Best,
		Candidates:           res.Candidates,
		ResolutionConfidence: res.ResolutionConfidence,
		Confidence:           conf,
		Decision:             string(decision),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// jobError maps resolver errors onto the shared codes. Only a failed catalog
// search is worth retrying.
func jobError(err error, query string) error {
	switch {
	case errors.Is(err, ErrCatalogSearchFailed):
		return apperrors.NewCatalogSearchFailedError(err).WithMetadata("query", query)
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	}
	return err
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
