package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ps "github.com/kungfusheep/payloadschema"
)

func newDecodeCmd() *cobra.Command {
	var schemaPath, payloadArg string
	var port int
	var rssi float64
	var receivedAt string

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a payload against a schema and print the resulting record as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(schemaPath)
			if err != nil {
				return schemaError(err)
			}
			buf, err := readPayload(payloadArg)
			if err != nil {
				return runtimeError(err)
			}

			md := ps.MetadataInput{}
			if cmd.Flags().Changed("port") {
				md["port"] = port
			}
			if cmd.Flags().Changed("rssi") {
				md["rssi"] = rssi
			}
			if receivedAt != "" {
				md["received_at"] = receivedAt
			}

			res := ps.Decode(s, buf, md)
			if res.Err != nil {
				return runtimeError(fmt.Errorf("%s: %w", res.Kind, res.Err))
			}

			out, err := recordJSON(res.Record)
			if err != nil {
				return runtimeError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (JSON or .bin/.psb)")
	cmd.Flags().StringVar(&payloadArg, "payload", "", "hex string, or @path to a raw file")
	cmd.Flags().IntVar(&port, "port", 0, "port number, for schemas dispatching on one")
	cmd.Flags().Float64Var(&rssi, "rssi", 0, "rssi metadata value")
	cmd.Flags().StringVar(&receivedAt, "received-at", "", "received_at metadata value")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("payload")
	return cmd
}
