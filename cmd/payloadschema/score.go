package main

import (
	"fmt"

	"github.com/spf13/cobra"

	ps "github.com/kungfusheep/payloadschema"
)

func newScoreCmd() *cobra.Command {
	var schemaPath, payloadArg string
	var port int

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Decode a payload and report the fraction of quality-tagged fields in range",
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

			res := ps.Decode(s, buf, md)
			if res.Err != nil {
				return runtimeError(fmt.Errorf("%s: %w", res.Kind, res.Err))
			}

			var good, outOfRange int
			for _, q := range res.Quality {
				switch q {
				case ps.QualityGood:
					good++
				case ps.QualityOutOfRange:
					outOfRange++
				}
			}
			total := good + outOfRange
			score := 1.0
			if total > 0 {
				score = float64(good) / float64(total)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "score: %.4f (%d/%d fields in range, %d warnings)\n",
				score, good, total, len(res.Warnings))
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (JSON or .bin/.psb)")
	cmd.Flags().StringVar(&payloadArg, "payload", "", "hex string, or @path to a raw file")
	cmd.Flags().IntVar(&port, "port", 0, "port number, for schemas dispatching on one")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("payload")
	return cmd
}
