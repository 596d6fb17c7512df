package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"festagenda/internal/agenda"
	"festagenda/internal/festival"
	"festagenda/internal/ics"
	"festagenda/internal/records"
)

const (
	formatRecords = "records"
	formatICS     = "ics"
	formatText    = "text"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the agenda as records, iCalendar or text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			rt, ag, err := opts.loadFor(cmd)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return encodeAgenda(cmd.OutOrStdout(), ag, format, rt.today)
			}
			return writeAgenda(output, ag, format, rt.today)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatRecords, "output format: records, ics or text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func checkFormat(format string) error {
	switch format {
	case formatRecords, formatICS, formatText:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want records, ics or text)", format)
	}
}

func encodeAgenda(w io.Writer, ag *agenda.Agenda, format string, today time.Time) error {
	switch format {
	case formatICS:
		return ics.WriteExport(w, ag, ics.ExportOptions{Name: "Festivals"})
	case formatText:
		return ag.Render(w, today)
	default:
		bw := bufio.NewWriter(w)
		ag.Each(func(_ festival.Month, ev *festival.Event) bool {
			bw.WriteString(records.Format(ev))
			bw.WriteByte('\n')
			return true
		})
		return bw.Flush()
	}
}

// writeAgenda replaces path atomically so a watched source never sees a
// half-written file.
func writeAgenda(path string, ag *agenda.Agenda, format string, today time.Time) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".festagenda-export-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encodeAgenda(tmp, ag, format, today); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
