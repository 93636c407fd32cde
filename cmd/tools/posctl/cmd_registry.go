// cmd/tools/posctl/cmd_registry.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pos-interpreter/pkg/registry"
)

var registryPath string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the action registry",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the registry shape and compile every params schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		if len(reg.Actions) == 0 {
			return fmt.Errorf("registry contains no actions")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d actions.\n", len(reg.Actions))
		return nil
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		for _, name := range reg.Names() {
			spec, _ := reg.Lookup(name)
			marker := ""
			if spec.Critical {
				marker = " [critical]"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s\n", name, spec.Signature, marker)
		}
		return nil
	},
}

func init() {
	registryCmd.PersistentFlags().StringVar(&registryPath, "path", "", "registry file (defaults to the embedded registry)")
	registryCmd.AddCommand(registryValidateCmd, registryListCmd)
}

func openRegistry() (*registry.Registry, error) {
	if registryPath == "" {
		return registry.Default(), nil
	}
	return registry.Load(registryPath)
}
