package draw

import (
	"io"
	"math"
	"strconv"
	"strings"
)

// Block characters for drawing.
const (
	BlockFull      = '█'
	BlockUpperHalf = '▀'
	BlockLowerHalf = '▄'
)

const resetSGR = "\033[0m"

// Canvas is a drawing buffer with 2x vertical resolution using half-block characters.
// World coordinates are centered on the origin with y pointing up; FitWorld sets
// a uniform scale so the whole world is visible.
type Canvas struct {
	termWidth      int     // Actual terminal columns
	termHeight     int     // Actual terminal rows
	subPixelHeight int     // termHeight * 2
	pixels         []uint8 // Flat slice: [y * termWidth + x] - palette index, 0 if unset

	// Previously rendered cells (top<<8 | bottom), so Render only emits changes.
	prev   []uint16
	redraw bool

	// World to pixel mapping
	scale   float64 // Pixels per world unit
	originX float64 // Pixel position of the world origin
	originY float64

	// Offset for centering the render area when terminal is larger than max resolution.
	// These are 0-based terminal offsets (columns/rows to skip).
	offsetCol int
	offsetRow int

	renderBuf strings.Builder // Buffer for batching render output
	numBuf    [20]byte
}

// NewCanvas creates a canvas for the given terminal dimensions.
// The canvas has 2x vertical resolution (height*2 sub-pixels).
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{scale: 1}
	c.Resize(width, height)
	return c
}

// Resize updates the canvas for new terminal dimensions.
func (c *Canvas) Resize(termWidth, termHeight int) {
	termWidth, termHeight = max(termWidth, 0), max(termHeight, 0)
	if termWidth == c.termWidth && termHeight == c.termHeight && c.pixels != nil {
		return
	}
	c.termWidth = termWidth
	c.termHeight = termHeight
	c.subPixelHeight = termHeight * 2
	c.pixels = make([]uint8, c.subPixelHeight*termWidth)
	c.prev = make([]uint16, termHeight*termWidth)
	c.redraw = true
}

// FitWorld scales a world of the given half extents to fill the canvas,
// keeping the aspect ratio.
func (c *Canvas) FitWorld(halfWidth, halfHeight float64) {
	if halfWidth <= 0 || halfHeight <= 0 || c.termWidth == 0 || c.subPixelHeight == 0 {
		return
	}
	c.scale = math.Min(float64(c.termWidth)/(2*halfWidth), float64(c.subPixelHeight)/(2*halfHeight))
	c.originX = float64(c.termWidth) / 2
	c.originY = float64(c.subPixelHeight) / 2
}

// WorldToPixel converts world coordinates to sub-pixel coordinates.
func (c *Canvas) WorldToPixel(x, y float64) (px, py float64) {
	return c.originX + x*c.scale, c.originY - y*c.scale
}

// SetOffset sets the column and row offset for centering the canvas.
// Offsets are 0-based terminal positions: the canvas starts at (offsetCol+1, offsetRow+1).
func (c *Canvas) SetOffset(col, row int) {
	if col != c.offsetCol || row != c.offsetRow {
		c.redraw = true
	}
	c.offsetCol = col
	c.offsetRow = row
}

// OffsetCol returns the column offset used for centering.
func (c *Canvas) OffsetCol() int {
	return c.offsetCol
}

// OffsetRow returns the row offset used for centering.
func (c *Canvas) OffsetRow() int {
	return c.offsetRow
}

// Clear resets all pixels in the canvas.
func (c *Canvas) Clear() {
	clear(c.pixels)
}

// ForceRedraw makes the next Render emit every cell, e.g. after the
// terminal was cleared.
func (c *Canvas) ForceRedraw() {
	c.redraw = true
}

// setPixel sets a pixel at actual terminal coordinates (no scaling).
func (c *Canvas) setPixel(x, y int, shade uint8) {
	if x >= 0 && x < c.termWidth && y >= 0 && y < c.subPixelHeight {
		c.pixels[y*c.termWidth+x] = shade
	}
}

// Pixel returns the palette index at sub-pixel (x, y), 0 if unset or outside.
func (c *Canvas) Pixel(x, y int) uint8 {
	if x < 0 || x >= c.termWidth || y < 0 || y >= c.subPixelHeight {
		return 0
	}
	return c.pixels[y*c.termWidth+x]
}

// FillCircle fills a disc given in world coordinates. Pixels whose centers
// fall inside the disc are set; a disc smaller than a pixel still sets one.
func (c *Canvas) FillCircle(x, y, r float64, shade uint8) {
	cx, cy := c.WorldToPixel(x, y)
	pr := r * c.scale

	yStart := int(math.Ceil(cy - pr - 0.5))
	yEnd := int(math.Floor(cy + pr - 0.5))
	filled := false
	for py := max(yStart, 0); py <= min(yEnd, c.subPixelHeight-1); py++ {
		dy := float64(py) + 0.5 - cy
		half := math.Sqrt(pr*pr - dy*dy)
		xStart := int(math.Ceil(cx - half - 0.5))
		xEnd := int(math.Floor(cx + half - 0.5))
		for px := max(xStart, 0); px <= min(xEnd, c.termWidth-1); px++ {
			c.pixels[py*c.termWidth+px] = shade
			filled = true
		}
	}
	if !filled {
		c.setPixel(int(math.Floor(cx)), int(math.Floor(cy)), shade)
	}
}

// maxChunkSize is the maximum bytes to write at once for optimal network flow.
// 1500 bytes matches typical MTU size for smooth SSH/network transmission.
const maxChunkSize = 1400

// Render outputs the cells that changed since the previous Render using
// half-block characters colored from the palette.
func (c *Canvas) Render(w io.Writer) {
	c.renderBuf.Reset()

	for row := 0; row < c.termHeight; row++ {
		topOffset := row * 2 * c.termWidth
		bottomOffset := topOffset + c.termWidth

		for col := 0; col < c.termWidth; col++ {
			top := c.pixels[topOffset+col]
			bottom := c.pixels[bottomOffset+col]
			key := uint16(top)<<8 | uint16(bottom)

			cell := row*c.termWidth + col
			if !c.redraw && c.prev[cell] == key {
				continue // Unchanged since last frame
			}
			c.prev[cell] = key

			c.moveCursor(col+1+c.offsetCol, row+1+c.offsetRow)
			switch {
			case top == 0 && bottom == 0:
				c.renderBuf.WriteByte(' ')
				continue
			case top == bottom:
				c.renderBuf.WriteString(fgCodes[top])
				c.renderBuf.WriteRune(BlockFull)
			case bottom == 0:
				c.renderBuf.WriteString(fgCodes[top])
				c.renderBuf.WriteRune(BlockUpperHalf)
			case top == 0:
				c.renderBuf.WriteString(fgCodes[bottom])
				c.renderBuf.WriteRune(BlockLowerHalf)
			default:
				c.renderBuf.WriteString(fgCodes[top])
				c.renderBuf.WriteString(bgCodes[bottom])
				c.renderBuf.WriteRune(BlockUpperHalf)
			}
			c.renderBuf.WriteString(resetSGR)
		}
	}
	c.redraw = false

	// Write output in chunks for optimal network flow
	data := c.renderBuf.String()
	for len(data) > 0 {
		chunk := data
		if len(chunk) > maxChunkSize {
			chunk = data[:maxChunkSize]
		}
		io.WriteString(w, chunk)
		data = data[len(chunk):]
	}
}

func (c *Canvas) moveCursor(col, row int) {
	c.renderBuf.WriteString("\033[")
	c.renderBuf.Write(strconv.AppendInt(c.numBuf[:0], int64(row), 10))
	c.renderBuf.WriteByte(';')
	c.renderBuf.Write(strconv.AppendInt(c.numBuf[:0], int64(col), 10))
	c.renderBuf.WriteByte('H')
}

// RenderBorder draws a box border around the canvas area when the terminal
// exceeds the max render resolution on both axes.
func (c *Canvas) RenderBorder(w io.Writer) {
	if c.offsetCol < 1 || c.offsetRow < 1 {
		return
	}

	// Border positions (1-based terminal coordinates)
	left := c.offsetCol
	right := c.offsetCol + c.termWidth + 1
	top := c.offsetRow
	bottom := c.offsetRow + c.termHeight + 1

	var buf strings.Builder
	line := strings.Repeat("─", c.termWidth)
	buf.WriteString("\033[" + strconv.Itoa(top) + ";" + strconv.Itoa(left) + "H┌" + line + "┐")
	buf.WriteString("\033[" + strconv.Itoa(bottom) + ";" + strconv.Itoa(left) + "H└" + line + "┘")
	for row := top + 1; row < bottom; row++ {
		r := strconv.Itoa(row)
		buf.WriteString("\033[" + r + ";" + strconv.Itoa(left) + "H│\033[" + r + ";" + strconv.Itoa(right) + "H│")
	}

	io.WriteString(w, buf.String())
}

// TerminalWidth returns the actual terminal column count.
func (c *Canvas) TerminalWidth() int {
	return c.termWidth
}

// TerminalHeight returns the actual terminal row count.
func (c *Canvas) TerminalHeight() int {
	return c.termHeight
}
