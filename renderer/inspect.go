package renderer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/biome/game"
)

// Panel dimensions
const (
	panelWidth   = 220
	panelPadding = 10
	lineHeight   = 18
)

var (
	colorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	colorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
)

// pickBeing returns the being whose body contains (x, y), widened by slack.
// The closest wins when bodies overlap.
func pickBeing(beings []game.BeingFrame, x, y, slack float64) (uint32, bool) {
	var (
		closest uint32
		best    float64
		found   bool
	)
	for i := range beings {
		b := &beings[i]
		dx, dy := x-b.X, y-b.Y
		d2 := dx*dx + dy*dy
		hit := b.Size/2 + slack
		if d2 <= hit*hit && (!found || d2 < best) {
			closest, best, found = b.ID, d2, true
		}
	}
	return closest, found
}

// findBeing returns the frame entry of id.
func findBeing(f *game.Frame, id uint32) (*game.BeingFrame, bool) {
	for i := range f.Beings {
		if f.Beings[i].ID == id {
			return &f.Beings[i], true
		}
	}
	return nil, false
}

// inspectLines describes a being for the inspector panel.
func inspectLines(b *game.BeingFrame) []string {
	return []string{
		fmt.Sprintf("#%d %s", b.ID, b.Kind),
		fmt.Sprintf("Energy: %.3f", b.Energy),
		fmt.Sprintf("Age: %d  Gen: %d", b.Age, b.Generation),
		fmt.Sprintf("Size: %.2f", b.Size),
		fmt.Sprintf("Speed: %.2f", b.Genome.Speed),
		fmt.Sprintf("Perception: %.2f", b.Genome.Perception),
		fmt.Sprintf("Repro rate: %.2f", b.Genome.ReproductionRate),
	}
}

// drawInspector renders the selected being's panel. A selection whose being
// has died is cleared.
func (v *View) drawInspector(f *game.Frame) {
	b, ok := findBeing(f, v.selected)
	if !ok {
		v.hasSelected = false
		return
	}

	lines := inspectLines(b)
	x := v.width - panelWidth - 10
	y := v.statsHeight + 10
	h := int32(len(lines))*lineHeight + 2*panelPadding

	rl.DrawRectangle(x, y, panelWidth, h, colorPanelBg)
	rl.DrawRectangleLines(x, y, panelWidth, h, colorPanelBorder)
	for i, line := range lines {
		color := rl.LightGray
		if i == 0 {
			color = rl.White
		}
		rl.DrawText(line, x+panelPadding, y+panelPadding+int32(i)*lineHeight, 14, color)
	}
}
