package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [depth]",
	Short: "Force a rebuild of the bottom `depth` binary-counter slots",
	Long:  `Optimize forces a collapse independent of the natural batch-driven cascade (spec §4.I).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, ok := dbFromContext(cmd)
		if !ok {
			return fmt.Errorf("forest not open")
		}
		depth := 0
		if len(args) == 1 {
			d, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid depth: %w", err)
			}
			depth = d
		}
		if err := db.Optimize(cmd.Context(), depth); err != nil {
			return err
		}
		cmd.Println("optimized")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}
