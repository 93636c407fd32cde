// internal/common/database/database_test.go
package database

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-interpreter/internal/common/config"
)

// ==========================
// Redis
// ==========================

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"qty": 2}, time.Minute))

	var got map[string]int
	require.NoError(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, 2, got["qty"])
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.GetJSON(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisClient_GetJSONError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisFromClient(db)

	mock.ExpectGet("k").SetErr(errors.New("connection reset"))

	var dst map[string]interface{}
	err := c.GetJSON(context.Background(), "k", &dst)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

// ==========================
// Elasticsearch
// ==========================

func TestElasticsearchClient_IndexExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.URL.Path == "/items" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	ok, err := c.IndexExists(context.Background(), "items")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IndexExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewElasticsearch_RequiresAddress(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{})
	assert.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := config.PostgresConfig{Host: "db", Port: 5432, User: "pos", Password: "x", Database: "audit", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=pos password=x dbname=audit sslmode=disable", cfg.GetDSN())
	assert.True(t, cfg.Enabled())

	c, err := NewPostgres(cfg)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
