// cmd/tools/posctl/cmd_stages.go
package main

import (
	"strings"

	"github.com/spf13/cobra"

	"pos-interpreter/internal/pos/catalog"
	"pos-interpreter/internal/pos/fastpath"
	"pos-interpreter/internal/pos/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <text...>",
	Short: "Print the normalized utterance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd.OutOrStdout(), normalize.Normalize(strings.Join(args, " ")))
	},
}

type fastpathOutput struct {
	Matched bool        `json:"matched"`
	Rule    string      `json:"rule,omitempty"`
	Actions interface{} `json:"actions,omitempty"`
}

var fastpathCmd = &cobra.Command{
	Use:   "fastpath <text...>",
	Short: "Show which deterministic rule answers a command",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadState()
		if err != nil {
			return err
		}
		actions, rule, ok := fastpath.MatchRule(strings.Join(args, " "), state, catalog.Parse(rawCatalog()))
		out := fastpathOutput{Matched: ok, Rule: rule}
		if ok {
			out.Actions = actions
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}
