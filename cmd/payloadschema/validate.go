package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ps "github.com/kungfusheep/payloadschema"
)

func newValidateCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a schema file and report whether it builds cleanly",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(schemaPath)
			if err != nil {
				return schemaError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s v%d\n", s.Name, s.Version)
			if declared := ps.DeclaredMetadata(s); len(declared) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "metadata: %v\n", declared)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (JSON or .bin/.psb)")
	cmd.MarkFlagRequired("schema")
	return cmd
}
