// Package renderer draws the simulation in a raylib window.
package renderer

import (
	"context"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/biome/camera"
	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/game"
)

// Sim is the part of the game the viewer drives. *game.Game implements it.
type Sim interface {
	Step() error
	Frame() *game.Frame
	Tick() uint32
}

// View is an interactive window onto a running simulation. Ticks are stepped
// from the draw loop, ticks_per_frame per frame while not paused.
type View struct {
	sim Sim
	ctl *game.Control
	cam *camera.Camera

	width, height int32
	statsHeight   int32
	targetFPS     int32
	ticksPerFrame int

	selected    uint32
	hasSelected bool
	dragging    bool
}

// New creates a view sized to the arena plus the stats strip.
func New(sim Sim, ctl *game.Control, cfg *config.Config) *View {
	w := int32(cfg.World.Width)
	h := int32(cfg.World.Height)
	stats := int32(cfg.Screen.StatsHeight)
	return &View{
		sim:           sim,
		ctl:           ctl,
		cam:           camera.New(0, float32(stats), float32(w), float32(h), float32(cfg.World.Width), float32(cfg.World.Height)),
		width:         w,
		height:        h + stats,
		statsHeight:   stats,
		targetFPS:     int32(cfg.Screen.TargetFPS),
		ticksPerFrame: max(cfg.Screen.TicksPerFrame, 1),
	}
}

// Run opens the window and loops until it is closed, ctx is cancelled, the
// control is stopped, maxTicks ticks have run (0 = unlimited) or a tick
// fails. Closing the window stops the control.
func (v *View) Run(ctx context.Context, maxTicks uint32) error {
	rl.InitWindow(v.width, v.height, "biome")
	defer rl.CloseWindow()
	rl.SetTargetFPS(v.targetFPS)
	rl.SetExitKey(rl.KeyNull) // escape clears the selection

	start := v.sim.Tick()
	for {
		if rl.WindowShouldClose() {
			slog.Info("window closed")
			v.ctl.Stop()
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-v.ctl.Done():
			return nil
		default:
		}

		v.handleInput()

		if !v.ctl.Paused() {
			for i := 0; i < v.ticksPerFrame; i++ {
				if err := v.sim.Step(); err != nil {
					return err
				}
				if maxTicks > 0 && v.sim.Tick()-start >= maxTicks {
					slog.Info("max ticks reached", "tick", v.sim.Tick())
					return nil
				}
			}
		}

		v.draw(v.sim.Frame())
	}
}

// handleInput processes keyboard and mouse controls.
func (v *View) handleInput() {
	if rl.IsKeyPressed(rl.KeySpace) {
		v.ctl.TogglePause()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.cam.Reset()
	}
	if rl.IsKeyPressed(rl.KeyEscape) {
		v.hasSelected = false
	}

	mouse := rl.GetMousePosition()

	if wheel := rl.GetMouseWheelMove(); wheel != 0 && v.cam.InViewport(mouse.X, mouse.Y) {
		factor := float32(1.1)
		if wheel < 0 {
			factor = 1 / factor
		}
		v.cam.ZoomAt(mouse.X, mouse.Y, factor)
	}

	// Right drag pans
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		if v.dragging {
			d := rl.GetMouseDelta()
			v.cam.Pan(-d.X, -d.Y)
		}
		v.dragging = true
	} else {
		v.dragging = false
	}

	// Left click selects, ignoring the stats strip where the button lives
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && v.cam.InViewport(mouse.X, mouse.Y) {
		f := v.sim.Frame()
		if f == nil {
			return
		}
		wx, wy := v.cam.ScreenToWorld(mouse.X, mouse.Y)
		slack := 5 / v.cam.Scale()
		if id, ok := pickBeing(f.Beings, float64(wx), float64(wy), float64(slack)); ok {
			v.selected, v.hasSelected = id, true
		} else {
			v.hasSelected = false
		}
	}
}

// statsLine is the one-line summary shown in the stats strip.
func statsLine(f *game.Frame, fps int32) string {
	return fmt.Sprintf("Tick: %d  Herb: %d  Carn: %d  Omni: %d  Food: %d  Workers: %d  FPS: %d",
		f.Tick, f.Herbivores, f.Carnivores, f.Omnivores, len(f.Food), f.ActiveWorkers, fps)
}
