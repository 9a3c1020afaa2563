package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Flush the tree cache and rewrite Meta",
	Long:  `Sync is the only durability barrier the coordinator crosses (spec §4.J step 7, §4.H).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, ok := dbFromContext(cmd)
		if !ok {
			return fmt.Errorf("forest not open")
		}
		if err := db.Sync(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("synced")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
