// internal/workers/pos/list-payment-methods/handler.go
package listpaymentmethods

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "pos-interpreter/internal/common/errors"
	"pos-interpreter/internal/models"
)

const (
	TaskType = "list-payment-methods"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Lister returns the enabled modes of payment.
type Lister interface {
	Methods(ctx context.Context) ([]models.PaymentMethod, error)
}

type Handler struct {
	config       *Config
	lister       Lister
	logger       Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, lister Lister, log Logger) *Handler {
	l := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		lister:       lister,
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
	if strings.TrimSpace(job.Variables) != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.errorHandler.HandleJobError(context.Background(), client, job, apperrors.NewInvalidInputError(err.Error()))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	methods, err := h.lister.Methods(ctx)
	if err != nil {
		return nil, apperrors.NewPaymentMethodsUnavailableError(err)
	}

	out := &Output{
		PaymentMethods: methods,
		Names:          models.PaymentMethodNames(methods),
	}
	if input.NamesOnly {
		out.PaymentMethods = []models.PaymentMethod{}
	}

	h.logger.Info("payment methods listed", map[string]interface{}{
		"count": len(out.Names),
	})
	return out, nil
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
