// internal/workers/pos/interpret-command/handler.go
package interpretcommand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "pos-interpreter/internal/common/errors"
	"pos-interpreter/internal/pos/interpreter"
)

const (
	TaskType = "interpret-command"
)

var (
	ErrInvalidInput     = errors.New("INVALID_INPUT")
	ErrLLMConfigMissing = interpreter.ErrLLMConfigMissing
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Interpreter is the pipeline the worker drives.
type Interpreter interface {
	Run(ctx context.Context, req interpreter.Request) (interpreter.Result, error)
}

type Handler struct {
	config       *Config
	interpreter  Interpreter
	logger       Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, it Interpreter, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		interpreter:  it,
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
		h.errorHandler.HandleJobError(context.Background(), client, job, jobError(fmt.Errorf("%w: parse input: %v", ErrInvalidInput, err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, jobError(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	res, err := h.interpreter.Run(ctx, interpreter.Request{
		TraceID: input.TraceID,
		Text:    input.Text,
		State:   input.State,
		Catalog: input.Catalog,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("command interpreted", map[string]interface{}{
		"traceId":  res.TraceID,
		"fastPath": res.FastPath,
		"fallback": res.Fallback,
		"actions":  len(res.Actions),
	})

	return &Output{
		Actions:           res.Actions,
		TraceID:           res.TraceID,
		FastPath:          res.FastPath,
		PromptFingerprint: res.PromptFP,
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

// jobError maps pipeline errors onto the shared codes. None of them is
// retryable: neither bad input nor missing credentials fix themselves.
func jobError(err error) error {
	switch {
	case errors.Is(err, ErrLLMConfigMissing):
		return apperrors.NewLLMConfigMissingError(err)
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	}
	return err
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
