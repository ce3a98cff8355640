package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/fieldreport/internal/config"
	"github.com/kozaktomas/fieldreport/internal/database/sqlite"
	"github.com/kozaktomas/fieldreport/internal/export"
	"github.com/kozaktomas/fieldreport/internal/imaging"
	"github.com/kozaktomas/fieldreport/internal/session"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a PDF report from photos",
	Long: `Generate a PDF report from the given form fields and photos.

Before photos fill the left column; each after photo is placed next to the
first before photo still waiting for one. After photos that find no open
before photo are rejected. Further photos follow in reading order.

Examples:
  fieldreport generate --account "Tech Corp" --site "Building A" \
    --task "Monthly HVAC Check" --provider "Acme Services" \
    --completed-by "Jordan Lee" --before ./before --after ./after
  fieldreport generate ... --delivery share --quality high`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	addRecordFlags(generateCmd)
	addImageFlags(generateCmd)
	addDeliveryFlags(generateCmd)
}

// addDeliveryFlags registers the export options.
func addDeliveryFlags(cmd *cobra.Command) {
	cmd.Flags().String("quality", "", "Image quality: standard or high (default from FIELDREPORT_QUALITY)")
	cmd.Flags().String("delivery", "save", "What to do with the PDF: save, share or download")
	cmd.Flags().Bool("json", false, "Print the export report as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	var recorder export.Recorder
	store, err := openStore(ctx, cmd, cfg)
	switch {
	case errors.Is(err, sqlite.ErrStoreLocked):
		fmt.Println("Warning: draft database is in use, this report will not be counted")
	case err != nil:
		return err
	default:
		defer store.Close()
		recorder = store
	}

	s := session.New("cli", nil)
	rec, err := applyRecordFlags(cmd, s.Record())
	if err != nil {
		return err
	}
	s.SetRecord(rec)
	if err := addImages(ctx, cmd, s); err != nil {
		return err
	}

	return exportSession(ctx, cmd, cfg, recorder, s)
}

// exportSession renders s and delivers the PDF as the flags ask.
func exportSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config, recorder export.Recorder, s *session.Session) error {
	quality := mustGetString(cmd, "quality")
	if quality == "" {
		quality = cfg.Export.Quality
	}
	profile, err := imaging.ParseProfile(quality)
	if err != nil {
		return err
	}
	delivery := mustGetString(cmd, "delivery")
	jsonOutput := mustGetBool(cmd, "json")

	var progress func(done, total int)
	if !jsonOutput {
		progress = newProgress("Preparing images")
	}
	service, err := newExportService(cfg, recorder, progress)
	if err != nil {
		return err
	}

	rec, seq := s.Snapshot()
	if s.Counts().Total() == 0 && !jsonOutput {
		fmt.Println("Note: no photos attached, the report will only contain the cover and end page")
	}

	doc, err := service.Build(ctx, s.ID, rec, seq, profile)
	if err != nil {
		return err
	}

	var location string
	switch delivery {
	case "save":
		location, err = service.Save(ctx, doc)
	case "share":
		err = service.Share(ctx, doc)
	case "download":
		err = service.Download(ctx, doc)
	default:
		return fmt.Errorf("unknown delivery %q (expected save, share or download)", delivery)
	}
	if err != nil {
		var sinkErr *export.SinkError
		if errors.As(err, &sinkErr) {
			return retryDelivery(ctx, service, s.ID, delivery, err)
		}
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	fmt.Printf("Generated %s (%d pages, %d photos)\n", doc.Filename, doc.Report.PageCount, doc.Report.ImageCount)
	if location != "" {
		fmt.Printf("Saved to %s\n", location)
	}
	if delivery == "share" {
		fmt.Println("Shared via outbox")
	}
	for _, w := range doc.Report.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	return nil
}

// retryDelivery makes one more delivery attempt with the already rendered
// document before giving up.
func retryDelivery(ctx context.Context, service *export.Service, owner, op string, first error) error {
	fmt.Printf("Warning: %v, retrying\n", first)
	if err := service.Retry(ctx, owner, op); err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	fmt.Printf("Delivered %s on retry\n", service.Last(owner).Filename)
	return nil
}
