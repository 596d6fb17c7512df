package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"festagenda/internal/festival"
	appLog "festagenda/internal/log"
)

func newCancelCmd(opts *rootOptions) *cobra.Command {
	var (
		dump   bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "cancel MONTH LOCATION...",
		Short: "Cancel the festivals of a month held in the given locations",
		Long: "Removes every festival starting in MONTH whose location is one of LOCATION " +
			"and that has not concluded yet. Locations are matched case-insensitively.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := festival.ParseMonth(args[0])
			if err != nil {
				return err
			}
			rt, ag, err := opts.loadFor(cmd)
			if err != nil {
				return err
			}

			n := ag.Cancel(args[1:], m, rt.today)
			out := cmd.OutOrStdout()
			if n < 0 {
				fmt.Fprintf(out, "no festivals in %s\n", m)
			} else {
				fmt.Fprintf(out, "cancelled %d festival(s) in %s\n", n, m)
				appLog.Info("festivals cancelled", "month", m, "locations", len(args)-1, "cancelled", n)
			}

			if output != "" {
				if err := writeAgenda(output, ag, formatRecords, rt.today); err != nil {
					return err
				}
			}
			if dump {
				return ag.Render(out, rt.today)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "print the agenda after cancelling")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the remaining festivals as records to this file")
	return cmd
}
