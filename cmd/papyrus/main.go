// Command papyrus is a thin shell around one papyrus table: get, set,
// keys, count, and erase against a database file. It exists for poking at
// stores from scripts and terminals, not as a query tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papyrusdb/papyrus"
	"github.com/papyrusdb/papyrus/logger"
)

type rootOptions struct {
	Database string
	Table    string
	Verbose  bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "papyrus",
		Short:         "Inspect and edit a papyrus document store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the database file (required)")
	cmd.PersistentFlags().StringVar(&opts.Table, "table", papyrus.DefaultTable, "table to operate on")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log connection activity")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(
		newGetCommand(opts),
		newSetCommand(opts),
		newKeysCommand(opts),
		newCountCommand(opts),
		newEraseCommand(opts),
	)
	return cmd
}

func (o *rootOptions) open(ctx context.Context) (*papyrus.Connection, error) {
	popts := []papyrus.Option{papyrus.WithTable(o.Table)}
	if o.Verbose {
		popts = append(popts, papyrus.WithLogger(logger.NewConsole(logger.LevelDebug)))
	}
	return papyrus.Open(ctx, o.Database, popts...)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			found, v, err := conn.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("nothing at %q", args[0])
			}
			return printJSON(v)
		},
	}
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <json>",
		Short: "Write a JSON value at a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc any
			if err := json.Unmarshal([]byte(args[1]), &doc); err != nil {
				return fmt.Errorf("parsing value: %w", err)
			}
			conn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			return conn.Set(cmd.Context(), args[0], doc)
		},
	}
}

func newKeysCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every key in the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			keys, err := conn.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
}

func newCountCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count the rows in the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			n, err := conn.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func newEraseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "erase <key> [key...]",
		Short: "Delete rows by key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			return conn.Erase(cmd.Context(), args...)
		},
	}
}
