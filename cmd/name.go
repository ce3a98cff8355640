package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/fieldreport/internal/report"
)

var nameCmd = &cobra.Command{
	Use:   "name",
	Short: "Print the file name a report would get",
	Long: `Print the file name derived from the account, site, task and date.
Characters other than ASCII letters, digits and spaces are dropped and
spaces become underscores. With --fold, accented letters are first mapped
to their base form, which shows an ASCII spelling to enter instead.

Example:
  fieldreport name --account "Café Corp" --site "Building A" --task "Check" --date 2024-03-15
  # Caf_Corp_Building_A_Check_2024-03-15.pdf
  fieldreport name --fold --account "Café Corp" --site "Building A" --task "Check" --date 2024-03-15
  # Cafe_Corp_Building_A_Check_2024-03-15.pdf`,
	Args: cobra.NoArgs,
	RunE: runName,
}

func init() {
	rootCmd.AddCommand(nameCmd)

	addRecordFlags(nameCmd)
	nameCmd.Flags().Bool("bare", false, "Print the name without the .pdf extension")
	nameCmd.Flags().Bool("fold", false, "Fold accented letters to ASCII before cleaning")
}

func runName(cmd *cobra.Command, args []string) error {
	rec, err := applyRecordFlags(cmd, report.Record{})
	if err != nil {
		return err
	}
	name := report.NameWith(rec, rec.Date.Time, report.NameOptions{FoldDiacritics: mustGetBool(cmd, "fold")})
	if mustGetBool(cmd, "bare") {
		fmt.Println(name)
		return nil
	}
	fmt.Println(name + ".pdf")
	return nil
}
