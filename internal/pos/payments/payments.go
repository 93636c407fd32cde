// internal/pos/payments/payments.go
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"pos-interpreter/internal/common/metrics"
	"pos-interpreter/internal/models"
)

var ErrPaymentMethodsUnavailable = errors.New("PAYMENT_METHODS_UNAVAILABLE")

const cacheKey = "modes_of_payment"

// Source lists enabled modes of payment.
type Source interface {
	ModesOfPayment(ctx context.Context) ([]models.PaymentMethod, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Service caches the source for a short TTL. Failures are not cached.
type Service struct {
	source Source
	cache  *cache.Cache
	log    Logger
}

func NewService(source Source, ttl time.Duration, log Logger) *Service {
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &Service{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
		log:    log,
	}
}

// Methods returns the enabled modes of payment with their accounts.
func (s *Service) Methods(ctx context.Context) ([]models.PaymentMethod, error) {
	if x, found := s.cache.Get(cacheKey); found {
		metrics.PaymentMethodsCache.WithLabelValues("hit").Inc()
		return x.([]models.PaymentMethod), nil
	}
	metrics.PaymentMethodsCache.WithLabelValues("miss").Inc()

	methods, err := s.source.ModesOfPayment(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentMethodsUnavailable, err)
	}
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	s.cache.Set(cacheKey, methods, cache.DefaultExpiration)
	return methods, nil
}

// Names returns the method names, or an empty list when the source fails.
func (s *Service) Names(ctx context.Context) []string {
	methods, err := s.Methods(ctx)
	if err != nil {
		s.log.Warn("payment methods unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return []string{}
	}
	return models.PaymentMethodNames(methods)
}

// Invalidate drops the cached list.
func (s *Service) Invalidate() {
	s.cache.Delete(cacheKey)
}
