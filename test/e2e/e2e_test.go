//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pos-interpreter/internal/bootstrap"
	"pos-interpreter/internal/common/camunda"
	"pos-interpreter/internal/common/config"
	"pos-interpreter/internal/common/database"
	"pos-interpreter/internal/common/logger"
	"pos-interpreter/internal/models"
	"pos-interpreter/internal/pos/interpreter"

	interpretcommand "pos-interpreter/internal/workers/pos/interpret-command"
)

var (
	zeebeClient zbc.Client
	zapLog      *zap.Logger
)

type interpretLoggerAdapter struct {
	logger.Logger
}

func (a *interpretLoggerAdapter) With(fields map[string]interface{}) interpretcommand.Logger {
	return &interpretLoggerAdapter{a.Logger.With(fields)}
}

func TestMain(m *testing.M) {
	var err error

	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to Zeebe: %v", err))
	}
	zapLog, _ = zap.NewProduction()

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func loadConfig(t *testing.T) *config.Config {
	cfg, err := config.Load()
	require.NoError(t, err)

	// Compose services are published on localhost.
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.URL = "http://localhost:9200"
	return cfg
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := loadConfig(t)
	assertServicesConnectivity(t, ctx, cfg)

	log := logger.NewZapAdapter(zapLog)
	c, err := bootstrap.NewContainer(ctx, cfg, bootstrap.Options{}, log)
	require.NoError(t, err)
	defer c.Close()
	require.NotNil(t, c.Audit, "audit store should be connected")

	t.Run("interpret is audited", func(t *testing.T) {
		testInterpretAudited(t, ctx, cfg, c)
	})
	t.Run("interpret-command worker", func(t *testing.T) {
		testInterpretWorker(t, ctx, cfg, c, log)
	})
}

func assertServicesConnectivity(t *testing.T, ctx context.Context, cfg *config.Config) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	assert.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	pg.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	assert.NoError(t, rdb.Ping(ctx), "Redis ping failed")
	rdb.Close()

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	assert.NoError(t, es.Ping(ctx), "Elasticsearch ping failed")

	_, err = zeebeClient.NewTopologyCommand().Send(ctx)
	assert.NoError(t, err, "Zeebe topology request failed")
}

// testInterpretAudited runs a fast-path command, which needs no model call
// when credentials are present, and checks the audit row.
func testInterpretAudited(t *testing.T, ctx context.Context, cfg *config.Config, c *bootstrap.Container) {
	if c.Provider == nil {
		t.Skip("model credentials not configured")
	}
	traceID := "e2e-" + uuid.NewString()

	res, err := c.Interpreter.Run(ctx, interpreter.Request{
		TraceID: traceID,
		Text:    "modo factura",
		State:   models.ConversationState{},
	})
	require.NoError(t, err)
	assert.True(t, res.FastPath)
	assert.Equal(t, []string{models.ActionSetMode}, models.ActionNames(res.Actions))

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer pg.Close()

	var (
		normalized string
		fastPath   bool
	)
	err = pg.DB.QueryRowContext(ctx,
		`SELECT normalized_text, fast_path FROM interpret_audit WHERE trace_id = $1`, traceID,
	).Scan(&normalized, &fastPath)
	require.NoError(t, err)
	assert.Equal(t, "modo factura", normalized)
	assert.True(t, fastPath)
}

func testInterpretWorker(t *testing.T, ctx context.Context, cfg *config.Config, c *bootstrap.Container, log logger.Logger) {
	if c.Provider == nil {
		t.Skip("model credentials not configured")
	}

	_, err := zeebeClient.NewDeployResourceCommand().AddResourceFile("testdata/pos-interpret.bpmn").Send(ctx)
	require.NoError(t, err)

	handler := interpretcommand.NewHandler(interpretcommand.LoadConfig(), c.Interpreter, &interpretLoggerAdapter{log})
	w := camunda.NewWorker(zeebeClient, interpretcommand.TaskType, config.WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 1,
		Timeout:       30000,
	}, handler.Handle, nil, zapLog)
	require.NotNil(t, w)
	defer w.Stop()

	cmd, err := zeebeClient.NewCreateInstanceCommand().
		BPMNProcessId("pos-interpret").
		LatestVersion().
		VariablesFromMap(map[string]interface{}{
			"text":    "confirmar",
			"state":   map[string]interface{}{"mode": "FACTURA", "cart": []interface{}{map[string]interface{}{"item_code": "CO-34"}}},
			"traceId": "e2e-" + uuid.NewString(),
		})
	require.NoError(t, err)

	resp, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err)

	var out interpretcommand.Output
	require.NoError(t, json.Unmarshal([]byte(resp.GetVariables()), &out))
	assert.True(t, out.FastPath)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, models.ActionAskUser, out.Actions[0].Action, "unpaid invoice asks for a payment method")
}
