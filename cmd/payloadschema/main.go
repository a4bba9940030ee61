// Command payloadschema is a standard wrapper exposing decode/encode/
// validate/score over a schema file and a payload (spec §6.4). It lives
// outside the core package the way spec §1 keeps command-line wrappers as
// an external collaborator; it exists only so one consistent CLI exists.
//
// Grounded on glint's cmd/glint Command/CommandRegistry shape (same verb
// set, same "one subcommand per Go file" layout), rebuilt on
// github.com/spf13/cobra instead of glint's stdlib flag.FlagSet.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "payloadschema",
		Short: "Decode and encode binary device payloads against a declarative schema",
	}
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newEncodeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newScoreCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCode is attached to an error by the subcommands below to select the
// process exit status spec §6.4 requires: 0 ok, 1 decode/encode error, 2
// invalid schema.
type exitCode struct {
	code int
	err  error
}

func (e *exitCode) Error() string { return e.err.Error() }
func (e *exitCode) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var ec *exitCode
	if as, ok := err.(*exitCode); ok {
		ec = as
	}
	if ec != nil {
		return ec.code
	}
	return 1
}

func schemaError(err error) error  { return &exitCode{code: 2, err: err} }
func runtimeError(err error) error { return &exitCode{code: 1, err: err} }
