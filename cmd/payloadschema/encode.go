package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	ps "github.com/kungfusheep/payloadschema"
)

func newEncodeCmd() *cobra.Command {
	var schemaPath, recordArg string
	var port int

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a JSON record against a schema and print the resulting bytes as hex",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(schemaPath)
			if err != nil {
				return schemaError(err)
			}

			data, err := readRecordInput(recordArg)
			if err != nil {
				return runtimeError(err)
			}
			rec, err := jsonToRecord(data)
			if err != nil {
				return runtimeError(fmt.Errorf("invalid record JSON: %w", err))
			}

			md := ps.MetadataInput{}
			if cmd.Flags().Changed("port") {
				md["port"] = port
			}

			res := ps.Encode(s, rec, md)
			if res.Err != nil {
				return runtimeError(fmt.Errorf("%s: %w", res.Kind, res.Err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(res.Bytes))
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (JSON or .bin/.psb)")
	cmd.Flags().StringVar(&recordArg, "record", "-", "JSON record, @path to a file, or - for stdin")
	cmd.Flags().IntVar(&port, "port", 0, "port number, for schemas dispatching on one")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func readRecordInput(s string) ([]byte, error) {
	if s == "-" {
		return io.ReadAll(os.Stdin)
	}
	if len(s) > 0 && s[0] == '@' {
		return os.ReadFile(s[1:])
	}
	return []byte(s), nil
}
