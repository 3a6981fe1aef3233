package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.01
}

func TestNew_FitsArena(t *testing.T) {
	cam := New(0, 50, 800, 800, 1600, 800)

	if cam.X != 800 || cam.Y != 400 {
		t.Errorf("expected camera at (800, 400), got (%f, %f)", cam.X, cam.Y)
	}
	if !near(cam.Scale(), 0.5) {
		t.Errorf("expected scale 0.5, got %f", cam.Scale())
	}

	// Arena corners land inside the viewport
	sx, sy := cam.WorldToScreen(0, 0)
	if !near(sx, 0) || !near(sy, 250) {
		t.Errorf("origin at (%f, %f), want (0, 250)", sx, sy)
	}
	sx, sy = cam.WorldToScreen(1600, 800)
	if !near(sx, 800) || !near(sy, 650) {
		t.Errorf("far corner at (%f, %f), want (800, 650)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(0, 50, 800, 800, 800, 800)
	cam.SetZoom(2)
	cam.Pan(100, -40)

	testCases := []struct{ sx, sy float32 }{
		{400, 450}, // center
		{10, 60},   // top-left
		{790, 840}, // bottom-right
	}

	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestPan_ClampedToArena(t *testing.T) {
	cam := New(0, 0, 800, 800, 800, 800)

	// At fit zoom the arena fills the view and cannot move
	cam.Pan(500, 500)
	if cam.X != 400 || cam.Y != 400 {
		t.Errorf("pan at fit zoom moved camera to (%f, %f)", cam.X, cam.Y)
	}

	cam.SetZoom(2)
	cam.Pan(10000, -10000)
	minX, minY, maxX, maxY := cam.VisibleWorldBounds()
	if !near(maxX, 800) || !near(minY, 0) {
		t.Errorf("bounds after pan = (%f,%f)-(%f,%f)", minX, minY, maxX, maxY)
	}
}

func TestZoom_Clamped(t *testing.T) {
	cam := New(0, 0, 800, 800, 800, 800)

	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}
	cam.SetZoom(0.1)
	if cam.Zoom != 1 {
		t.Errorf("expected zoom clamped to 1, got %f", cam.Zoom)
	}
}

func TestZoomAt_KeepsPointFixed(t *testing.T) {
	cam := New(0, 0, 800, 800, 800, 800)

	wx, wy := cam.ScreenToWorld(300, 350)
	cam.ZoomAt(300, 350, 2)
	sx, sy := cam.WorldToScreen(wx, wy)
	if !near(sx, 300) || !near(sy, 350) {
		t.Errorf("point under cursor moved to (%f, %f)", sx, sy)
	}
	if cam.Zoom != 2 {
		t.Errorf("zoom = %f, want 2", cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(0, 0, 800, 800, 800, 800)
	cam.SetZoom(4) // view is 200x200 world units around (400, 400)

	if !cam.IsVisible(400, 400, 1) {
		t.Error("center should be visible")
	}
	if cam.IsVisible(50, 50, 5) {
		t.Error("far corner should not be visible")
	}
	if !cam.IsVisible(295, 400, 10) {
		t.Error("circle overlapping the edge should be visible")
	}
}

func TestInViewport(t *testing.T) {
	cam := New(0, 50, 800, 800, 800, 800)
	if cam.InViewport(10, 20) {
		t.Error("stats strip is not part of the viewport")
	}
	if !cam.InViewport(10, 60) {
		t.Error("point below stats strip is in the viewport")
	}
}
