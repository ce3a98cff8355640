package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/fieldreport/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show report counters and recent activity",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int("limit", 10, "Number of activity entries to show")
	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	store, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics, err := store.GetMetrics(ctx)
	if err != nil {
		return err
	}
	drafts, err := store.ListDrafts(ctx)
	if err != nil {
		return err
	}
	activities, err := store.ListActivities(ctx, mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"metrics":    metrics,
			"draftCount": len(drafts),
			"activities": activities,
		})
	}

	fmt.Println(renderTable(
		[]string{"Metric", "Value"},
		[][]string{
			{"Reports generated", strconv.Itoa(metrics.ReportsGenerated)},
			{"Reports shared", strconv.Itoa(metrics.ReportsShared)},
			{"Last generated", formatTime(metrics.LastGeneratedAt)},
			{"Last shared", formatTime(metrics.LastSharedAt)},
			{"Drafts", strconv.Itoa(len(drafts))},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	if len(activities) == 0 {
		fmt.Println("No recent activity")
		return nil
	}
	rows := make([][]string, len(activities))
	for i, a := range activities {
		rows[i] = []string{formatTime(a.CreatedAt), string(a.Type), a.Title, a.Description}
	}
	fmt.Println(renderTable([]string{"When", "Type", "Report", "Description"}, rows, nil))
	return nil
}
