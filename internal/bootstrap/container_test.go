// internal/bootstrap/container_test.go
package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-interpreter/internal/common/config"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/interpreter"
)

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func TestNewContainer_Minimal(t *testing.T) {
	cfg := &config.Config{}
	cfg.APIs.LLM.Provider = "openai"

	c, err := NewContainer(context.Background(), cfg, Options{SkipDatabases: true}, &TestLogger{t: t})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Provider)
	assert.Nil(t, c.ERP)
	assert.Nil(t, c.Payments)
	assert.Nil(t, c.Search)
	assert.Nil(t, c.Resolver)
	assert.NotNil(t, c.Registry)

	_, err = c.Interpreter.Interpret(context.Background(), "modo factura", models.ConversationState{}, nil)
	assert.ErrorIs(t, err, interpreter.ErrLLMConfigMissing)
}

func TestNewContainer_WithERPAndModel(t *testing.T) {
	cfg := &config.Config{}
	cfg.APIs.LLM.Provider = "openai"
	cfg.APIs.LLM.APIKey = "sk-test"
	cfg.APIs.LLM.BaseURL = "http://127.0.0.1:1"
	cfg.APIs.ERP.BaseURL = "http://127.0.0.1:1"
	cfg.APIs.ERP.Token = "k:s"

	c, err := NewContainer(context.Background(), cfg, Options{SkipDatabases: true}, &TestLogger{t: t})
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Provider)
	assert.NotNil(t, c.Payments)
	assert.NotNil(t, c.Search)
	assert.NotNil(t, c.Resolver)

	res, err := c.Interpreter.Interpret(context.Background(), "modo remito", models.ConversationState{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"set_mode"}, models.ActionNames(res.Actions))
}

func TestNewContainer_RegistryPath(t *testing.T) {
	cfg := &config.Config{}
	cfg.APIs.LLM.Provider = "openai"

	cfg.Interpret.RegistryPath = filepath.Join(t.TempDir(), "missing.json")
	_, err := NewContainer(context.Background(), cfg, Options{SkipDatabases: true}, &TestLogger{t: t})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1","actions":[{"name":"repeat","signature":"()","params":{"type":"object"}}]}`), 0o644))
	cfg.Interpret.RegistryPath = path
	c, err := NewContainer(context.Background(), cfg, Options{SkipDatabases: true}, &TestLogger{t: t})
	require.NoError(t, err)
	assert.Equal(t, []string{"repeat"}, c.Registry.Names())
}

func TestResolverAndBlendConfig(t *testing.T) {
	in := config.InterpretConfig{
		MaxCandidates: 3,
		ActThreshold:  0.8,
		AskThreshold:  0.5,
		NominalMM:     map[string]int{"1/2": 20, "bogus": 1},
	}
	in.Blend.LLMWeight = 0.7
	in.Blend.ResolverWeight = 0.3

	rc := ResolverConfig(in)
	assert.Equal(t, 3, rc.MaxCandidates)
	assert.Equal(t, 0.08, rc.MMBonus)
	mm, ok := rc.Nominal.MM(0.5)
	assert.True(t, ok)
	assert.Equal(t, 20, mm)
	assert.Len(t, rc.Nominal, 1)

	bc := BlendConfig(in)
	assert.Equal(t, 0.7, bc.LLMWeight)
	assert.Equal(t, 0.8, bc.ActThreshold)
	assert.Equal(t, 0.5, bc.AskThreshold)
}
