package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// infoCmd represents the debug "info" subcommand spec §6 names: a dump of
// forest occupancy (live roots, pending deletes, the next tree id watermark).
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print forest occupancy diagnostics",
	Long:  `info reports the same data forest.DB.Explain exposes: live roots per slot, the next tree id, and pending deletes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, ok := dbFromContext(cmd)
		if !ok {
			return fmt.Errorf("forest not open")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(db.Explain())
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
