// cmd/tools/posctl/cmd_interpret.go
package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pos-interpreter/internal/bootstrap"
	"pos-interpreter/internal/common/config"
	"pos-interpreter/internal/pos/interpreter"
)

type interpretOutput struct {
	TraceID     string      `json:"trace_id"`
	FastPath    bool        `json:"fast_path"`
	Fallback    bool        `json:"fallback"`
	Fingerprint string      `json:"prompt_fingerprint,omitempty"`
	DurationMS  int64       `json:"duration_ms"`
	Violations  []string    `json:"violations,omitempty"`
	Actions     interface{} `json:"actions"`
}

var interpretCmd = &cobra.Command{
	Use:   "interpret <text...>",
	Short: "Run the full pipeline, model included, against the current cart",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadState()
		if err != nil {
			return err
		}
		c, err := newContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.Interpreter.Run(cmd.Context(), interpreter.Request{
			TraceID: uuid.NewString(),
			Text:    strings.Join(args, " "),
			State:   state,
			Catalog: rawCatalog(),
		})
		if errors.Is(err, interpreter.ErrLLMConfigMissing) {
			return errors.New("model credentials are not configured (set APIS_LLM_API_KEY)")
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), interpretOutput{
			TraceID:     res.TraceID,
			FastPath:    res.FastPath,
			Fallback:    res.Fallback,
			Fingerprint: res.PromptFP,
			DurationMS:  res.Duration.Milliseconds(),
			Violations:  res.Violations,
			Actions:     res.Actions,
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <query...>",
	Short: "Rank catalog items for a product query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		if c.Resolver == nil {
			return errors.New("no catalog source configured (set apis.erp.base_url)")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		res, err := c.Resolver.ResolveQuery(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		conf := c.Blend.Blend(nil, &res.ResolutionConfidence)
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"best":                  res.Best,
			"candidates":            res.Candidates,
			"resolution_confidence": res.ResolutionConfidence,
			"decision":              c.Blend.Decide(conf),
		})
	},
}

// newContainer wires the pipeline without the audit or search databases.
func newContainer(ctx context.Context) (*bootstrap.Container, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	return bootstrap.NewContainer(ctx, cfg, bootstrap.Options{SkipDatabases: true}, cliLogger())
}
