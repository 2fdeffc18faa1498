package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/stackcost/internal/history"
)

type cli struct {
	open openFunc
	now  func() time.Time
}

func newRootCmd(open openFunc, now func() time.Time) *cobra.Command {
	c := &cli{open: open, now: now}

	root := &cobra.Command{
		Use:          "costctl",
		Short:        "Lamination stack cost and strip yield calculator",
		SilenceUsage: true,
	}

	root.AddCommand(
		c.estimateCmd(),
		c.yieldCmd(),
		c.historyCmd(),
		c.migrateCmd(),
	)
	return root
}

// withResources opens the history backend for the duration of fn.
func (c *cli) withResources(cmd *cobra.Command, fn func(rt *resources) error) error {
	rt, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if rt.close != nil {
			_ = rt.close()
		}
	}()
	return fn(rt)
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse job file %s: %w", path, err)
	}
	return nil
}

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or delete saved calculations",
	}

	list := &cobra.Command{
		Use:   "list <cost|yield>",
		Short: "List saved entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := history.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return c.withResources(cmd, func(rt *resources) error {
				entries := rt.store.Load(cmd.Context(), collection)
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no saved entries")
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSAVED\tLABEL")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Timestamp.Local().Format("2006-01-02 15:04"), e.Label)
				}
				return tw.Flush()
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <cost|yield> <id>",
		Short: "Delete one saved entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := history.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return c.withResources(cmd, func(rt *resources) error {
				if err := rt.store.Delete(cmd.Context(), collection, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withResources(cmd, func(rt *resources) error {
				version, err := rt.migrate()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			})
		},
	}
}
