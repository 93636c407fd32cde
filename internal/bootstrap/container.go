// internal/bootstrap/container.go

// Package bootstrap builds the interpreter and its collaborators from
// configuration. Optional backends that are unset or unreachable are left
// out and the service runs degraded.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-interpreter/internal/common/config"
	"pos-interpreter/internal/common/database"
	"pos-interpreter/internal/common/erp"
	"pos-interpreter/internal/common/llm"
	"pos-interpreter/internal/pos/audit"
	"pos-interpreter/internal/pos/interpreter"
	"pos-interpreter/internal/pos/normalize"
	"pos-interpreter/internal/pos/payments"
	"pos-interpreter/internal/pos/resolver"
	"pos-interpreter/internal/pos/search"
	"pos-interpreter/pkg/registry"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Container struct {
	Config      *config.Config
	Registry    *registry.Registry
	Provider    llm.Provider
	ERP         *erp.Client
	Payments    *payments.Service
	Search      search.Source
	Resolver    *resolver.Service
	Blend       resolver.BlendConfig
	Audit       *audit.Store
	Interpreter *interpreter.Interpreter

	closers []func() error
}

// Options switch off backends a caller does not want, e.g. the CLI.
type Options struct {
	SkipDatabases bool
}

func NewContainer(ctx context.Context, cfg *config.Config, opts Options, log Logger) (*Container, error) {
	c := &Container{Config: cfg, Blend: BlendConfig(cfg.Interpret)}

	reg, err := loadRegistry(cfg.Interpret.RegistryPath)
	if err != nil {
		return nil, err
	}
	c.Registry = reg

	c.Provider, err = llm.NewProvider(ctx, cfg.APIs.LLM)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("model credentials missing, interpret requests will fail", map[string]interface{}{
			"provider": cfg.APIs.LLM.Provider,
		})
		c.Provider = nil
	case err != nil:
		return nil, fmt.Errorf("model provider: %w", err)
	}

	if cfg.APIs.ERP.Enabled() {
		c.ERP = erp.NewClient(cfg.APIs.ERP)
		c.Payments = payments.NewService(c.ERP, time.Duration(cfg.Interpret.CacheTTL)*time.Second, log)
	}

	sources := []search.Named{}
	if !opts.SkipDatabases {
		if es := c.connectElasticsearch(ctx, cfg, log); es != nil {
			var src search.Source = search.NewElasticSource(es.Client, cfg.Database.Elasticsearch.ItemIndex)
			if rc := c.connectRedis(ctx, cfg, log); rc != nil {
				src = search.NewCachedSource(src, rc, config.GetDuration(cfg.Database.Redis.CacheTTL), log)
			}
			sources = append(sources, search.Named{Name: "elasticsearch", Source: src})
		}
		c.Audit = c.connectAudit(ctx, cfg, log)
	}
	if c.ERP != nil {
		sources = append(sources, search.Named{Name: "erp", Source: c.ERP})
	}
	if len(sources) > 0 {
		c.Search = search.NewFallback(log, sources...)
		c.Resolver = resolver.NewService(c.Search, resolver.New(ResolverConfig(cfg.Interpret)), 20, log)
	}

	deps := interpreter.Dependencies{Provider: c.Provider, Registry: c.Registry}
	if c.Payments != nil {
		deps.Payments = c.Payments
	}
	if c.Audit != nil {
		deps.Audit = c.Audit
	}
	c.Interpreter = interpreter.New(cfg.Interpret, deps, log)
	return c, nil
}

// Close releases every connection the container opened.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	reg, err := registry.Load(path)
	if err != nil {
		return nil, fmt.Errorf("action registry %s: %w", path, err)
	}
	return reg, nil
}

func (c *Container) connectElasticsearch(ctx context.Context, cfg *config.Config, log Logger) *database.ElasticsearchClient {
	if cfg.Database.Elasticsearch.GetURL() == "" {
		return nil
	}
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err == nil {
		err = es.Ping(ctx)
	}
	if err != nil {
		log.Warn("elasticsearch unavailable, searching the ERP only", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if ok, err := es.IndexExists(ctx, cfg.Database.Elasticsearch.ItemIndex); err == nil && !ok {
		log.Warn("item index missing", map[string]interface{}{"index": cfg.Database.Elasticsearch.ItemIndex})
	}
	return es
}

func (c *Container) connectRedis(ctx context.Context, cfg *config.Config, log Logger) *database.RedisClient {
	if cfg.Database.Redis.Address == "" {
		return nil
	}
	rc, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Warn("redis unavailable, search results are not cached", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		log.Warn("redis unavailable, search results are not cached", map[string]interface{}{"error": err.Error()})
		return nil
	}
	c.closers = append(c.closers, rc.Close)
	return rc
}

func (c *Container) connectAudit(ctx context.Context, cfg *config.Config, log Logger) *audit.Store {
	if !cfg.Database.Postgres.Enabled() {
		return nil
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err == nil {
		err = pg.Ping(ctx)
	}
	if err == nil {
		store := audit.NewStore(pg.DB)
		if err = store.EnsureSchema(ctx); err == nil {
			c.closers = append(c.closers, pg.Close)
			return store
		}
	}
	if pg != nil {
		_ = pg.Close()
	}
	log.Warn("audit database unavailable, commands are not recorded", map[string]interface{}{"error": err.Error()})
	return nil
}

// ResolverConfig maps the interpret settings onto the resolver.
func ResolverConfig(in config.InterpretConfig) resolver.Config {
	rc := resolver.DefaultConfig()
	if in.MaxCandidates > 0 {
		rc.MaxCandidates = in.MaxCandidates
	}
	if in.Bonuses.MM > 0 {
		rc.MMBonus = in.Bonuses.MM
	}
	if in.Bonuses.Fraction > 0 {
		rc.FractionBonus = in.Bonuses.Fraction
	}
	if t := normalize.NominalTableFromStrings(in.NominalMM); len(t) > 0 {
		rc.Nominal = t
	}
	return rc
}

// BlendConfig maps the interpret settings onto the blender.
func BlendConfig(in config.InterpretConfig) resolver.BlendConfig {
	bc := resolver.DefaultBlendConfig()
	if in.Blend.LLMWeight > 0 || in.Blend.ResolverWeight > 0 {
		bc.LLMWeight = in.Blend.LLMWeight
		bc.ResolverWeight = in.Blend.ResolverWeight
	}
	if in.ActThreshold > 0 {
		bc.ActThreshold = in.ActThreshold
	}
	if in.AskThreshold > 0 {
		bc.AskThreshold = in.AskThreshold
	}
	return bc
}
