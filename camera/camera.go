// Package camera maps the bounded arena onto a screen viewport.
package camera

// Camera controls the viewport into the arena. The arena is bounded, so the
// camera center is clamped to keep the view inside it whenever the view is
// smaller than the arena.
type Camera struct {
	// X, Y is the camera center in world coordinates
	X, Y float32

	// Zoom level (1.0 = fit, 2.0 = 2x magnification)
	Zoom float32

	// Screen rectangle the arena is drawn into
	OffsetX, OffsetY     float32
	ViewportW, ViewportH float32

	WorldW, WorldH float32

	// fit is the scale at which the whole arena fits the viewport
	fit float32

	MaxZoom float32
}

// New creates a camera that shows the whole arena in a viewport of the given
// size placed at (offsetX, offsetY) on screen.
func New(offsetX, offsetY, viewportW, viewportH, worldW, worldH float32) *Camera {
	c := &Camera{
		OffsetX:   offsetX,
		OffsetY:   offsetY,
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		MaxZoom:   8.0,
	}
	c.fit = min(viewportW/worldW, viewportH/worldH)
	c.Reset()
	return c
}

// Scale returns screen pixels per world unit.
func (c *Camera) Scale() float32 {
	return c.fit * c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	s := c.Scale()
	sx = c.OffsetX + c.ViewportW/2 + (wx-c.X)*s
	sy = c.OffsetY + c.ViewportH/2 + (wy-c.Y)*s
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	s := c.Scale()
	wx = c.X + (sx-c.OffsetX-c.ViewportW/2)/s
	wy = c.Y + (sy-c.OffsetY-c.ViewportH/2)/s
	return wx, wy
}

// IsVisible reports whether a circle at (wx, wy) could be visible on screen.
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	return wx+radius >= minX && wx-radius <= maxX && wy+radius >= minY && wy-radius <= maxY
}

// InViewport reports whether a screen point lies inside the viewport.
func (c *Camera) InViewport(sx, sy float32) bool {
	return sx >= c.OffsetX && sx < c.OffsetX+c.ViewportW &&
		sy >= c.OffsetY && sy < c.OffsetY+c.ViewportH
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	s := c.Scale()
	c.X += dx / s
	c.Y += dy / s
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to [1, MaxZoom].
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, 1, c.MaxZoom)
	c.clampCenter()
}

// ZoomAt multiplies the zoom by factor keeping the world point under the
// screen point (sx, sy) fixed.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.Zoom = clamp(c.Zoom*factor, 1, c.MaxZoom)
	s := c.Scale()
	c.X = wx - (sx-c.OffsetX-c.ViewportW/2)/s
	c.Y = wy - (sy-c.OffsetY-c.ViewportH/2)/s
	c.clampCenter()
}

// Reset shows the whole arena.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the world-coordinate bounds of the viewport.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	s := c.Scale()
	halfW := c.ViewportW / (2 * s)
	halfH := c.ViewportH / (2 * s)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// clampCenter keeps the view inside the arena on each axis where the view is
// smaller than the arena, and centers the arena otherwise.
func (c *Camera) clampCenter() {
	s := c.Scale()
	c.X = clampAxis(c.X, c.ViewportW/(2*s), c.WorldW)
	c.Y = clampAxis(c.Y, c.ViewportH/(2*s), c.WorldH)
}

func clampAxis(center, half, size float32) float32 {
	if 2*half >= size {
		return size / 2
	}
	return clamp(center, half, size-half)
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
