package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/neighbor"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

type candidateJSON struct {
	Cell          int  `json:"cell"`
	Adjacent      bool `json:"adjacent"`
	ContactPoints int  `json:"contact_points"`
}

type neighborsJSON struct {
	Cell       int             `json:"cell"`
	T          int             `json:"t"`
	Radius     float64         `json:"radius"`
	Candidates []candidateJSON `json:"candidates"`
}

func newNeighborsCommand(a *app) *cobra.Command {
	var (
		t, cell int
		format  string
	)
	c := &cobra.Command{
		Use:   "neighbors",
		Short: "Show the metric neighbors of a cell and which of them it touches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := a.trajectories(cmd.Context())
			if err != nil {
				return err
			}
			if err := checkCell(set, cell); err != nil {
				return err
			}
			report, err := neighborReport(set, contour.NewLocator(a.contourStore()), neighbor.NewFilter(set), t, cell)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "text":
				_, _ = fmt.Fprintf(w, "cell %d at t=%d, search radius %.2f\n", report.Cell, report.T, report.Radius)
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "CELL\tADJACENT\tCONTACT_POINTS")
				for _, cand := range report.Candidates {
					_, _ = fmt.Fprintf(tw, "%d\t%t\t%d\n", cand.Cell, cand.Adjacent, cand.ContactPoints)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unsupported format %q (use text or json)", format)
			}
		},
	}
	c.Flags().IntVar(&t, "t", 0, "frame index")
	c.Flags().IntVar(&cell, "cell", 0, "cell (set index)")
	c.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return c
}

func neighborReport(set *trajectory.Set, loc *contour.Locator, filter *neighbor.Filter, t, cell int) (*neighborsJSON, error) {
	radius, err := filter.Radius(t)
	if err != nil {
		return nil, err
	}
	candidates, err := filter.Candidates(t, cell)
	if err != nil {
		return nil, err
	}

	locate := func(ii int) (*contour.Polygon, error) {
		tr, err := set.Get(ii)
		if err != nil {
			return nil, err
		}
		x, y, err := tr.Position(t)
		if err != nil {
			return nil, err
		}
		return loc.Locate(t, int(x), int(y))
	}

	own, err := locate(cell)
	if err != nil {
		return nil, err
	}
	report := &neighborsJSON{Cell: cell, T: t, Radius: radius, Candidates: make([]candidateJSON, 0, len(candidates))}
	for _, jj := range candidates {
		other, err := locate(jj)
		if err != nil {
			return nil, err
		}
		c := candidateJSON{Cell: jj}
		if own != nil && neighbor.AreAdjacent(own, other) {
			c.Adjacent = true
			c.ContactPoints = len(neighbor.SharedEdge(own, other))
		}
		report.Candidates = append(report.Candidates, c)
	}
	return report, nil
}
