package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/celltraj/internal/contour"
)

type contourJSON struct {
	Label  int    `json:"label"`
	Points int    `json:"points"`
	Bounds [4]int `json:"bounds"` // min_x, min_y, max_x, max_y (exclusive)
}

func newContoursCommand(a *app) *cobra.Command {
	var (
		t      int
		format string
	)
	c := &cobra.Command{
		Use:   "contours",
		Short: "List the traced region boundaries of one frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cs, err := a.contourStore().Contours(t)
			if err != nil {
				return err
			}
			return writeContours(cmd.OutOrStdout(), cs, format)
		},
	}
	c.Flags().IntVar(&t, "t", 0, "frame index")
	c.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return c
}

func writeContours(w io.Writer, cs *contour.Contours, format string) error {
	switch format {
	case "json":
		out := make([]contourJSON, 0, cs.Len())
		for _, label := range cs.Labels {
			p := cs.ByLabel[label]
			b := p.Bounds
			out = append(out, contourJSON{Label: label, Points: p.Len(), Bounds: [4]int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y}})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "LABEL\tPOINTS\tBOUNDS")
		for _, label := range cs.Labels {
			p := cs.ByLabel[label]
			_, _ = fmt.Fprintf(tw, "%d\t%d\t%v\n", label, p.Len(), p.Bounds)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format %q (use text or json)", format)
	}
}
