package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"festagenda/internal/festival"
)

func newDumpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every month with its festivals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, ag, err := opts.loadFor(cmd)
			if err != nil {
				return err
			}
			return ag.Render(cmd.OutOrStdout(), rt.today)
		},
	}
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count MONTH",
		Short: "Print how many festivals start in a month",
		Long:  "MONTH may be a full name, a three-letter abbreviation or a number from 1 to 12.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := festival.ParseMonth(args[0])
			if err != nil {
				return err
			}
			_, ag, err := opts.loadFor(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", m, ag.CountInMonth(m))
			return nil
		},
	}
}

func newStylesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "Print the festivals grouped by musical style",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, ag, err := opts.loadFor(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range ag.GroupByStyle() {
				fmt.Fprintf(out, "%s: %s\n", g.Style, strings.Join(g.Names, ", "))
			}
			return nil
		},
	}
}
