package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fieldreport",
	Short: "Build field maintenance reports as PDF",
	Long: `Field Report turns a maintenance visit into a PDF report: a cover page
with the visit details, before/after photo pairs side by side, further
photos and an end page. Reports can be saved as drafts and edited later,
or served to a browser front-end through a local HTTP API.`,
	SilenceUsage: true,
}

// Root returns the root command for execution.
func Root() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("db", "", "Path of the draft database (overrides FIELDREPORT_DB_PATH)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
