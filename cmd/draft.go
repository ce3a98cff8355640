package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/fieldreport/internal/config"
	"github.com/kozaktomas/fieldreport/internal/database"
	"github.com/kozaktomas/fieldreport/internal/draft"
	"github.com/kozaktomas/fieldreport/internal/report"
	"github.com/kozaktomas/fieldreport/internal/session"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage saved report drafts",
}

var draftSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save photos and form fields as a draft",
	Long: `Save photos and form fields as a draft. With --into the draft is loaded
first: set flags replace its fields and new photos are added to its slots.`,
	Args: cobra.NoArgs,
	RunE: runDraftSave,
}

var draftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List drafts, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runDraftList,
}

var draftShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a draft and its photos",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftShow,
}

var draftDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftDelete,
}

var draftExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Generate the PDF of a draft",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftExport,
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.AddCommand(draftSaveCmd, draftListCmd, draftShowCmd, draftDeleteCmd, draftExportCmd)

	addRecordFlags(draftSaveCmd)
	addImageFlags(draftSaveCmd)
	draftSaveCmd.Flags().String("into", "", "Update this draft instead of creating a new one")

	draftListCmd.Flags().Bool("json", false, "Output as JSON")
	draftShowCmd.Flags().Bool("json", false, "Output as JSON")

	addDeliveryFlags(draftExportCmd)
}

func runDraftSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	store, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	s := session.New("cli", store)
	if id := mustGetString(cmd, "into"); id != "" {
		if err := s.Load(ctx, id); err != nil {
			return fmt.Errorf("load draft %s: %w", id, err)
		}
	}
	rec, err := applyRecordFlags(cmd, s.Record())
	if err != nil {
		return err
	}
	s.SetRecord(rec)
	if err := addImages(ctx, cmd, s); err != nil {
		return err
	}

	d, err := s.Commit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Saved draft %s (%s photos before/after/other)\n", d.ID, counts(d.Counts()))
	if err := rec.Validate(); err != nil {
		fmt.Printf("Note: %v\n", err)
	}
	return nil
}

func runDraftList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	store, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	drafts, err := store.ListDrafts(ctx)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		type row struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Before int    `json:"before"`
			After  int    `json:"after"`
			Upload int    `json:"upload"`
		}
		out := make([]row, len(drafts))
		for i, d := range drafts {
			c := d.Counts()
			out[i] = row{d.ID, report.Name(d.Record, d.UpdatedAt), c.Before, c.After, c.Upload}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(drafts) == 0 {
		fmt.Println("No drafts")
		return nil
	}
	rows := make([][]string, len(drafts))
	for i, d := range drafts {
		rows[i] = []string{d.ID, d.Record.Account, d.Record.Site, d.Record.TaskName, counts(d.Counts()), formatTime(d.UpdatedAt)}
	}
	fmt.Println(renderTable(
		[]string{"ID", "Account", "Site", "Task", "Before / After / Other", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	store, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	d, err := store.GetDraft(ctx, args[0])
	if err != nil {
		return fmt.Errorf("draft %s: %w", args[0], err)
	}

	if mustGetBool(cmd, "json") {
		view := *d
		view.Before, view.After, view.Upload = withoutData(d.Before), withoutData(d.After), withoutData(d.Upload)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"draft": view, "counts": d.Counts()})
	}

	var details [][]string
	for _, row := range d.Record.DetailRows() {
		details = append(details, []string{row.Label, row.Value})
	}
	details = append(details,
		[]string{"Created", formatTime(d.CreatedAt)},
		[]string{"Updated", formatTime(d.UpdatedAt)},
	)
	fmt.Println(renderTable([]string{"Field", "Value"}, details, nil))

	images := d.All()
	if len(images) == 0 {
		fmt.Println("No photos")
		return nil
	}
	rows := make([][]string, len(images))
	for i, img := range images {
		rows[i] = []string{strconv.Itoa(img.Position), string(img.Role), img.Caption, strconv.Itoa(len(img.Data) / 1024)}
	}
	fmt.Println(renderTable(
		[]string{"Position", "Role", "Caption", "KiB"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	))
	return nil
}

// withoutData copies stored images without their bytes.
func withoutData(imgs []database.StoredImage) []database.StoredImage {
	out := make([]database.StoredImage, len(imgs))
	for i, img := range imgs {
		img.Data = nil
		out[i] = img
	}
	return out
}

func runDraftDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	store, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := draft.Delete(ctx, store, args[0]); err != nil {
		return fmt.Errorf("delete draft %s: %w", args[0], err)
	}
	fmt.Printf("Deleted draft %s\n", args[0])
	return nil
}

func runDraftExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	store, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	s := session.New("cli", store)
	if err := s.Load(ctx, args[0]); err != nil {
		return fmt.Errorf("load draft %s: %w", args[0], err)
	}
	return exportSession(ctx, cmd, cfg, store, s)
}
