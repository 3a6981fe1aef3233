package renderer

import (
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/biome/game"
	"github.com/pthm-cable/biome/traits"
)

var (
	colorBackground = rl.Color{R: 12, G: 16, B: 22, A: 255}
	colorStrip      = rl.Color{R: 30, G: 30, B: 35, A: 240}
	colorFood       = rl.Color{R: 90, G: 200, B: 90, A: 255}
	colorSelection  = rl.Yellow
)

// draw renders one frame.
func (v *View) draw(f *game.Frame) {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	rl.ClearBackground(colorBackground)
	if f == nil {
		return
	}

	v.drawFood(f)
	v.drawBeings(f)
	v.drawStrip(f)
	if v.hasSelected {
		v.drawInspector(f)
	}
}

func (v *View) drawFood(f *game.Frame) {
	s := v.cam.Scale()
	r := max(1.5, 1.5*s)
	for i := range f.Food {
		x, y := float32(f.Food[i].X), float32(f.Food[i].Y)
		if !v.cam.IsVisible(x, y, 2) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(x, y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, r, colorFood)
	}
}

// drawBeings renders beings as oriented triangles colored by kind and
// dimmed by energy.
func (v *View) drawBeings(f *game.Frame) {
	s := v.cam.Scale()
	for i := range f.Beings {
		b := &f.Beings[i]
		radius := float32(b.Size / 2)
		x, y := float32(b.X), float32(b.Y)
		if !v.cam.IsVisible(x, y, radius) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(x, y)
		color := kindColor(b.Kind, b.Energy)
		drawOrientedTriangle(sx, sy, float32(b.Heading), max(radius*s, 2), color)

		if v.hasSelected && b.ID == v.selected {
			rl.DrawCircleLines(int32(sx), int32(sy), max(radius*s, 2)*2, colorSelection)
		}
	}
}

// drawStrip renders the stats line and the pause button.
func (v *View) drawStrip(f *game.Frame) {
	rl.DrawRectangle(0, 0, v.width, v.statsHeight, colorStrip)

	label := "Pause"
	if v.ctl.Paused() {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: 10, Y: float32(v.statsHeight-30) / 2, Width: 80, Height: 30}, label) {
		v.ctl.TogglePause()
	}

	rl.DrawText(statsLine(f, rl.GetFPS()), 100, v.statsHeight/2-8, 16, rl.White)
	if v.ctl.Paused() {
		rl.DrawText("PAUSED", v.width-80, v.statsHeight/2-8, 16, rl.Yellow)
	}
}

// kindColor returns the display color of a kind, dimmed for low energy.
func kindColor(k traits.Kind, energy float64) rl.Color {
	r, g, b := k.Color()
	e := math.Min(math.Max(energy, 0), 1)
	return rl.Color{R: r, G: g, B: b, A: uint8(100 + e*155)}
}

// drawOrientedTriangle draws a triangle pointing in the heading direction.
func drawOrientedTriangle(x, y, heading, radius float32, color rl.Color) {
	cos := float32(math.Cos(float64(heading)))
	sin := float32(math.Sin(float64(heading)))

	// Front point
	front := rl.Vector2{X: x + cos*radius*1.5, Y: y + sin*radius*1.5}

	backAngle := float64(heading) + math.Pi*0.8
	backLeft := rl.Vector2{
		X: x + float32(math.Cos(backAngle))*radius,
		Y: y + float32(math.Sin(backAngle))*radius,
	}
	backAngle = float64(heading) - math.Pi*0.8
	backRight := rl.Vector2{
		X: x + float32(math.Cos(backAngle))*radius,
		Y: y + float32(math.Sin(backAngle))*radius,
	}

	// DrawTriangle requires counter-clockwise winding
	rl.DrawTriangle(front, backRight, backLeft, color)
}
