package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/kdforest/pkg/spatial"
)

var queryCmd = &cobra.Command{
	Use:   "query <lo...> <hi...>",
	Short: "Run a bbox range query and print matching rows as JSON",
	Long: `Run a bbox range query (spec §4.K) against the forest's current live
roots. lo and hi are each dim space-separated numbers, e.g. for a
2-dimensional forest:

  kdforest query 0 0 10 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, ok := dbFromContext(cmd)
		if !ok {
			return fmt.Errorf("forest not open")
		}
		dim, _ := cmd.Flags().GetInt("dim")
		if len(args) != 2*dim {
			return fmt.Errorf("expected %d lo values followed by %d hi values, got %d args", dim, dim, len(args))
		}

		lo := make([]float64, dim)
		hi := make([]float64, dim)
		for i := 0; i < dim; i++ {
			if _, err := fmt.Sscanf(args[i], "%g", &lo[i]); err != nil {
				return fmt.Errorf("invalid lo[%d]: %w", i, err)
			}
			if _, err := fmt.Sscanf(args[dim+i], "%g", &hi[i]); err != nil {
				return fmt.Errorf("invalid hi[%d]: %w", i, err)
			}
		}

		bbox := spatial.Bounds[float64]{Lo: lo, Hi: hi}
		hits, err := db.Query(bbox, nil)
		if err != nil {
			return err
		}

		type outRow struct {
			Point  []float64 `json:"point_lo"`
			Value  string    `json:"value"`
			TreeID uint64    `json:"tree_id"`
		}
		out := make([]outRow, len(hits))
		for i, h := range hits {
			coords := make([]float64, h.Point.Dim())
			for j := range coords {
				coords[j] = h.Point.AxisLower(j)
			}
			out[i] = outRow{
				Point:  coords,
				Value:  base64.StdEncoding.EncodeToString([]byte(h.Value)),
				TreeID: h.Location.TreeID,
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
