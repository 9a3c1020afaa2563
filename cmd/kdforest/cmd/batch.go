package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/kdforest/pkg/spatial"
)

// jsonRow mirrors pkg/api's wire row shape; the CLI parses JSON directly
// rather than importing pkg/api, so `kdforest batch` has no HTTP dependency.
type jsonRow struct {
	Op    string  `json:"op"`
	Point []coord `json:"point"`
	Value string  `json:"value,omitempty"`
	ID    string  `json:"id,omitempty"`
}

type coord struct {
	Lo float64  `json:"lo"`
	Hi *float64 `json:"hi,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Apply a batch of insert/delete rows from a JSON file",
	Long: `Apply a batch of insert/delete rows read from a JSON file (or "-" for
stdin), per spec §4.J. The batch is not durable until followed by "sync".

Example:
  kdforest batch rows.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, ok := dbFromContext(cmd)
		if !ok {
			return fmt.Errorf("forest not open")
		}

		var r io.Reader
		if args[0] == "-" {
			r = os.Stdin
		} else {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		var body []jsonRow
		if err := json.NewDecoder(r).Decode(&body); err != nil {
			return fmt.Errorf("invalid batch file: %w", err)
		}

		dim, _ := cmd.Flags().GetInt("dim")
		valueWidth, _ := cmd.Flags().GetInt("value-width")
		rows := make([]spatial.Row[float64, spatial.BytesValue], 0, len(body))
		for _, jr := range body {
			point, err := decodeCLIPoint(jr.Point, dim)
			if err != nil {
				return err
			}
			switch jr.Op {
			case "insert":
				raw, err := base64.StdEncoding.DecodeString(jr.Value)
				if err != nil {
					return err
				}
				if valueWidth > 0 && len(raw) != valueWidth {
					return fmt.Errorf("value is %d bytes, forest is configured for %d-byte values", len(raw), valueWidth)
				}
				rows = append(rows, spatial.NewInsert[float64, spatial.BytesValue](point, spatial.BytesValue(raw)))
			case "delete":
				rows = append(rows, spatial.NewDelete[float64, spatial.BytesValue](point, jr.ID))
			default:
				return fmt.Errorf("unknown row op %q", jr.Op)
			}
		}

		if err := db.Batch(rows); err != nil {
			return err
		}
		cmd.Printf("applied %d rows\n", len(rows))
		return nil
	},
}

func decodeCLIPoint(coords []coord, dim int) (spatial.Point[float64], error) {
	if len(coords) != dim {
		return nil, fmt.Errorf("point has %d coords, forest is %d-dimensional", len(coords), dim)
	}
	p := make(spatial.Point[float64], dim)
	for i, c := range coords {
		if c.Hi == nil {
			p[i] = spatial.NewScalar(c.Lo)
			continue
		}
		iv, err := spatial.NewInterval[float64](i, c.Lo, *c.Hi)
		if err != nil {
			return nil, err
		}
		p[i] = iv
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
