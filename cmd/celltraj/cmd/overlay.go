package cmd

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/neighbor"
	"github.com/MeKo-Tech/celltraj/internal/overlay"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
)

func newOverlayCommand(a *app) *cobra.Command {
	var (
		t         int
		out, wstr string
	)
	c := &cobra.Command{
		Use:   "overlay",
		Short: "Render contours and contact points over a frame",
		Long: `Render every traced boundary in white and every shared-edge contact
point in green over frame t. With --window only cells whose centroid lies
inside the window are considered and the image is cropped to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			frame, err := a.frames().Frame(t)
			if err != nil {
				return err
			}
			set, err := a.trajectories(cmd.Context())
			if err != nil {
				return err
			}

			b := frame.Bounds()
			window := trajectory.Window{Y0: -1, Y1: float64(b.Dy()), X0: -1, X1: float64(b.Dx())}
			var crop image.Rectangle
			if wstr != "" {
				if window, err = trajectory.ParseWindow(wstr); err != nil {
					return err
				}
				crop = overlay.WindowRect(window)
			}

			store := a.contourStore()
			edges, err := overlay.SharedEdges(set, contour.NewLocator(store), neighbor.NewFilter(set), t, window)
			if err != nil {
				return err
			}
			cs, err := store.Contours(t)
			if err != nil {
				return err
			}
			if err := imaging.Save(overlay.Render(frame, cs, edges, crop), out); err != nil {
				return fmt.Errorf("save overlay: %w", err)
			}
			a.logger.Info("overlay written", "path", out, "t", t, "edges", len(edges))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	c.Flags().IntVar(&t, "t", 0, "frame index")
	c.Flags().StringVarP(&out, "out", "o", "", "output image (.png, .jpg, .tif, .bmp)")
	c.Flags().StringVar(&wstr, "window", "", "restrict to y0,y1,x0,x1")
	return c
}
