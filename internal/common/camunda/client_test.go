// internal/common/camunda/client_test.go
package camunda

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "pos-interpreter/internal/common/errors"
)

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(errors.New("rpc error: code = Unavailable")))
	assert.True(t, isRetryableZeebeError(errors.New("context deadline exceeded")))
	assert.False(t, isRetryableZeebeError(errors.New("process definition not found")))
}

func TestMapZeebeError(t *testing.T) {
	err := mapZeebeError(errors.New("deadline exceeded"), "topology", 2)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTimeout))
	assert.Contains(t, err.(*apperrors.StandardError).Details, "after 2 attempts")

	err = mapZeebeError(errors.New("connection refused"), "topology", 0)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternalService))
}
