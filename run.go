package linden

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/pingcap/errors"
)

// RunConfig configures Run.
type RunConfig struct {
	Title  string
	Width  int
	Height int
	// ShowFPS prints FPS, TPS and the last frame's stats in the corner.
	ShowFPS bool
}

type game struct {
	scene *Scene
	cfg   RunConfig
}

func (g *game) Update() error {
	return g.scene.Update()
}

func (g *game) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
	if !g.cfg.ShowFPS {
		return
	}
	st := g.scene.Stats()
	msg := fmt.Sprintf("FPS: %.0f  TPS: %.0f\ngen %d  price %d  batches %d",
		ebiten.ActualFPS(), ebiten.ActualTPS(), st.Generation, st.Price, st.Batches)
	if st.Skipped {
		msg += "  (skipped)"
	}
	ebitenutil.DebugPrint(screen, msg)
}

func (g *game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Run opens a window and runs scene as an ebiten game until the window
// closes. The scene is closed on return.
func Run(scene *Scene, cfg RunConfig) error {
	defer scene.Close()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.Errorf("linden: invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	return errors.Trace(ebiten.RunGame(&game{scene: scene, cfg: cfg}))
}
