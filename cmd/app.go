package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/fieldreport/internal/acquire"
	"github.com/kozaktomas/fieldreport/internal/config"
	"github.com/kozaktomas/fieldreport/internal/database/sqlite"
	"github.com/kozaktomas/fieldreport/internal/export"
	"github.com/kozaktomas/fieldreport/internal/layout"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/session"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// openStore opens the draft database named by --db or the configuration.
func openStore(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*sqlite.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = cfg.Store.Path
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft database: %w", err)
	}
	return store, nil
}

// newEngine builds the layout engine from the configured layout file and
// background images.
func newEngine(cfg *config.Config) (*layout.Engine, error) {
	lc, err := layout.LoadConfig(cfg.Layout.File)
	if err != nil {
		return nil, err
	}
	if cfg.Layout.PixelsPerUnit > 0 {
		lc.Page.PixelsPerUnit = cfg.Layout.PixelsPerUnit
	}
	assets, err := layout.LoadAssets(cfg.Layout.CoverImage, cfg.Layout.EndImage)
	if err != nil {
		return nil, err
	}
	return layout.NewEngine(lc, assets)
}

// newExportService wires the export pipeline. progress may be nil.
func newExportService(cfg *config.Config, recorder export.Recorder, progress func(done, total int)) (*export.Service, error) {
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	opts := layout.DefaultOptions()
	opts.Concurrency = cfg.Export.Concurrency
	opts.ImageTimeout = cfg.Export.ImageTimeout
	opts.Progress = progress
	return export.NewService(engine, export.NewDirSink(cfg.Export.Dir), recorder, opts), nil
}

// addRecordFlags registers the form fields of a report.
func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "Customer account")
	cmd.Flags().String("site", "", "Site of the maintenance visit")
	cmd.Flags().String("task", "", "Name of the PM task")
	cmd.Flags().String("provider", "", "Service provider")
	cmd.Flags().String("completed-by", "", "Technician who completed the service")
	cmd.Flags().String("date", "", "Date of maintenance, YYYY-MM-DD (default today)")
}

// applyRecordFlags overrides the fields of rec whose flags were set. The
// date defaults to today when neither rec nor the flags carry one.
func applyRecordFlags(cmd *cobra.Command, rec report.Record) (report.Record, error) {
	fields := []struct {
		flag  string
		value *string
	}{
		{"account", &rec.Account},
		{"site", &rec.Site},
		{"task", &rec.TaskName},
		{"provider", &rec.ServiceProvider},
		{"completed-by", &rec.CompletedBy},
	}
	for _, f := range fields {
		if cmd.Flags().Changed(f.flag) {
			*f.value = mustGetString(cmd, f.flag)
		}
	}
	if cmd.Flags().Changed("date") {
		d, err := report.ParseDate(mustGetString(cmd, "date"))
		if err != nil {
			return rec, err
		}
		rec.Date = d
	}
	if rec.Date.IsZero() {
		rec.Date = report.NewDate(time.Now())
	}
	return rec, nil
}

// addImageFlags registers the photo inputs of a report.
func addImageFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("before", nil, "Before photos (files or directories)")
	cmd.Flags().StringSlice("after", nil, "After photos (files or directories)")
	cmd.Flags().StringSlice("upload", nil, "Further photos (files or directories)")
	cmd.Flags().Bool("recursive", false, "Descend into subdirectories")
	cmd.Flags().String("capture-dir", "", "Add the newest photo of this directory")
	cmd.Flags().String("capture-role", "upload", "Role of the captured photo: before, after or upload")
}

// addImages picks the photos named by the image flags into s, before
// images first so that after images find their pairs.
func addImages(ctx context.Context, cmd *cobra.Command, s *session.Session) error {
	recursive := mustGetBool(cmd, "recursive")
	var rejected slots.Rejection
	for _, role := range []slots.Role{slots.RoleBefore, slots.RoleAfter, slots.RoleUpload} {
		paths := mustGetStringSlice(cmd, string(role))
		if len(paths) == 0 {
			continue
		}
		src := &acquire.FileSource{Paths: paths, Recursive: recursive}
		data, err := src.PickImages(ctx)
		if err != nil {
			return fmt.Errorf("%s photos: %w", role, err)
		}
		_, rej := s.Add(role, data...)
		rejected = rejected.Add(rej)
		fmt.Printf("Added %d %s photo(s)\n", len(data)-rej.Count, role)
	}

	if dir := mustGetString(cmd, "capture-dir"); dir != "" {
		role, err := slots.ParseRole(mustGetString(cmd, "capture-role"))
		if err != nil {
			return err
		}
		src := &acquire.FileSource{CaptureDir: dir}
		data, err := src.CapturePhoto(ctx)
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		_, rej := s.Add(role, data)
		rejected = rejected.Add(rej)
	}

	if rejected.Rejected() {
		fmt.Printf("Warning: %s\n", rejected.Message())
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newProgress returns a progress callback drawing a bar on a terminal, nil
// otherwise. The bar is created on the first call, when the total is known.
func newProgress(description string) func(done, total int) {
	if !isTerminal(os.Stdout) {
		return nil
	}
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("images"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
		if done == total {
			_ = bar.Finish()
			fmt.Println()
		}
	}
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// formatTime renders a timestamp for tables.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// counts renders per-role image counts.
func counts(c slots.Counts) string {
	return fmt.Sprintf("%d / %d / %d", c.Before, c.After, c.Upload)
}
