// Command goremes runs a RemesPath query over a JSON document.
//
// Usage:
//
//	goremes 'QUERY' [FILE]
//
// The document is read from FILE, or from stdin when no file is given.
package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sandrolain/goremes"
	"github.com/sandrolain/goremes/pkg/types"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var verbose bool
	root := &cobra.Command{
		Use:           "goremes 'QUERY' [FILE]",
		Short:         "Run a RemesPath query over a JSON document",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return run(cmd.OutOrStdout(), args)
		},
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log compilation details")
	root.Version = goremes.Version()

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("query failed")
		os.Exit(1)
	}
}

func run(out io.Writer, args []string) error {
	query := args[0]

	var doc []byte
	var err error
	if len(args) == 2 {
		if doc, err = os.ReadFile(args[1]); err != nil {
			return err
		}
	} else {
		if doc, err = io.ReadAll(os.Stdin); err != nil {
			return err
		}
	}

	compiled, err := goremes.Compile(query)
	if err != nil {
		return err
	}
	if compiled.IsCur() {
		log.Debug().Str("query", query).Msg("compiled a late-bound query")
	} else {
		log.Debug().Str("query", query).Msg("query is constant; the document is ignored")
	}

	input, err := types.ParseJSON(string(doc))
	if err != nil {
		return err
	}
	result, err := goremes.Apply(compiled, input)
	if err != nil {
		return err
	}
	if _, err = io.WriteString(out, result.String()); err != nil {
		return err
	}
	_, err = io.WriteString(out, "\n")
	return err
}
