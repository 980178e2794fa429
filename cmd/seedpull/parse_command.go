package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"seedpull/internal/jobstatus"
	"seedpull/internal/models"
)

func newParseCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a captured `jobs -v` listing",
		Long:  "Parse lftp `jobs -v` output from a file, or from stdin when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			report := jobstatus.Parse(logger, in)

			if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Always emit JSON")
	return cmd
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderReport(report jobstatus.Report) string {
	var b strings.Builder

	if len(report.Jobs) == 0 {
		b.WriteString("No jobs.\n")
	} else {
		rows := make([][]string, 0, len(report.Jobs))
		for _, job := range report.Jobs {
			rows = append(rows, jobRow(job))
		}
		b.WriteString(renderTable(
			[]string{"ID", "Type", "Name", "Progress", "Size", "Speed", "ETA", "State"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n")
	}

	if len(report.Queue) > 0 {
		rows := make([][]string, 0, len(report.Queue))
		for _, entry := range report.Queue {
			rows = append(rows, []string{strconv.Itoa(entry.Position), entry.Command})
		}
		b.WriteString(renderTable([]string{"#", "Queued command"}, rows, []columnAlignment{alignRight, alignLeft}))
		b.WriteString("\n")
	}

	if report.Skipped > 0 {
		fmt.Fprintf(&b, "%d unreadable block(s) skipped\n", report.Skipped)
	}
	return b.String()
}

func jobRow(job models.Job) []string {
	state := "done"
	if job.IsRunning {
		state = "running"
	}
	row := []string{strconv.Itoa(job.ID), string(job.Type), path.Base(job.Filename), "", "", "", "", state}

	ts := job.TransferState
	if ts == nil {
		return row
	}
	if ts.Percent != nil {
		row[3] = fmt.Sprintf("%d%%", *ts.Percent)
	}
	if job.HasProgress() {
		row[4] = fmt.Sprintf("%s / %s", humanize.IBytes(uint64(*ts.LocalSize)), humanize.IBytes(uint64(*ts.RemoteSize)))
	}
	if ts.Speed != nil {
		row[5] = *ts.Speed
	}
	if ts.ETA != nil {
		row[6] = (time.Duration(*ts.ETA) * time.Second).String()
	}
	return row
}
