// cmd/tools/posctl/main.go

// posctl runs pipeline stages from the shell: it is the quickest way to see
// what a phrase normalizes to, which fast-path rule answers it, or what the
// whole interpreter returns for a given cart.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pos-interpreter/internal/common/logger"
	"pos-interpreter/internal/models"
)

var (
	statePath   string
	catalogJSON string
	configPath  string
	verbose     bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Inspect the POS command interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&statePath, "state", "", "path to a conversation state JSON file")
	root.PersistentFlags().StringVar(&catalogJSON, "catalog", "", "allowed actions, as a JSON array or object")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (defaults to ./configs/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline decisions to stderr")

	root.AddCommand(normalizeCmd, fastpathCmd, interpretCmd, resolveCmd, registryCmd)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func cliLogger() logger.Logger {
	level := "error"
	if verbose {
		level = "debug"
	}
	return logger.NewZapAdapter(logger.New(level, "console"))
}

func loadState() (models.ConversationState, error) {
	var state models.ConversationState
	if statePath == "" {
		return state, nil
	}
	data, err := os.ReadFile(statePath)
	if err != nil {
		return state, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("decode state %s: %w", statePath, err)
	}
	return state, nil
}

func rawCatalog() json.RawMessage {
	if catalogJSON == "" {
		return nil
	}
	return json.RawMessage(catalogJSON)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
