// internal/imaging/contour.go
package imaging

import "slices"

// Neighbor offsets ordered clockwise on screen (y grows downward), starting east.
var (
	dirX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	dirY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

const dirWest = 4

// grid is a foreground bitmap padded with a one pixel background frame so the
// tracer never has to bounds-check.
type grid struct {
	w, h int // padded dimensions
	fg   []bool
}

func newGrid(mask *Image) *grid {
	g := &grid{w: mask.Width + 2, h: mask.Height + 2}
	g.fg = make([]bool, g.w*g.h)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			g.fg[(y+1)*g.w+x+1] = mask.Pix[y*mask.Width+x] != 0
		}
	}
	return g
}

func (g *grid) neighbor(i, d int) int {
	return i + dirY[d]*g.w + dirX[d]
}

func (g *grid) direction(from, to int) int {
	dx := to%g.w - from%g.w
	dy := to/g.w - from/g.w
	for d := 0; d < 8; d++ {
		if dirX[d] == dx && dirY[d] == dy {
			return d
		}
	}
	return -1
}

// outside marks background pixels 4-connected to the frame. Foreground is
// 8-connected, so any background pocket not reached here is a hole.
func (g *grid) outside() []bool {
	seen := make([]bool, len(g.fg))
	stack := []int{0}
	seen[0] = true
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%g.w, i/g.w
		for _, n := range [4][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
			if n[0] < 0 || n[0] >= g.w || n[1] < 0 || n[1] >= g.h {
				continue
			}
			j := n[1]*g.w + n[0]
			if !g.fg[j] && !seen[j] {
				seen[j] = true
				stack = append(stack, j)
			}
		}
	}
	return seen
}

// label floods the 8-connected component containing start with id.
func (g *grid) label(labels []int32, start int, id int32) {
	stack := []int{start}
	labels[start] = id
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for d := 0; d < 8; d++ {
			j := g.neighbor(i, d)
			if g.fg[j] && labels[j] == 0 {
				labels[j] = id
				stack = append(stack, j)
			}
		}
	}
}

// trace follows the outer border that starts at start, whose west neighbor is
// background (Suzuki and Abe, border following step 3).
func (g *grid) trace(start int) []int {
	first := -1
	for k := 0; k < 8; k++ {
		d := (dirWest + k) % 8
		if n := g.neighbor(start, d); g.fg[n] {
			first = n
			break
		}
	}
	if first < 0 {
		// Isolated pixel.
		return []int{start}
	}

	var border []int
	prev, cur := first, start
	for {
		d := g.direction(cur, prev)
		next := -1
		for k := 1; k <= 8; k++ {
			n := g.neighbor(cur, (d-k+16)%8)
			if g.fg[n] {
				next = n
				break
			}
		}
		border = append(border, cur)
		if next == start && cur == first {
			return border
		}
		prev, cur = cur, next
	}
}

// findExternalContours returns the outer border of every foreground region
// that is not enclosed by a hole of another region. The first point of each
// contour is its first raster pixel. Like OpenCV's scanner, contours come out
// in reverse discovery order: index 0 is the region whose first pixel is
// last in raster order.
func findExternalContours(mask *Image) []Contour {
	g := newGrid(mask)
	out := g.outside()
	labels := make([]int32, len(g.fg))

	var contours []Contour
	var id int32
	for y := 1; y <= mask.Height; y++ {
		for x := 1; x <= mask.Width; x++ {
			i := y*g.w + x
			if !g.fg[i] || labels[i] != 0 {
				continue
			}
			id++
			g.label(labels, i, id)

			// The first raster pixel of a region always has background to the west.
			// Regions that sit inside another region's hole are skipped.
			if !out[i-1] {
				continue
			}
			contours = append(contours, g.toContour(g.trace(i)))
		}
	}
	slices.Reverse(contours)
	return contours
}

// toContour converts padded indices to image coordinates and drops points in
// the middle of straight horizontal, vertical or diagonal runs.
func (g *grid) toContour(border []int) Contour {
	pts := make(Contour, 0, len(border))
	for _, i := range border {
		pts = append(pts, Point{X: i%g.w - 1, Y: i/g.w - 1})
	}
	return approxSimple(pts)
}

func approxSimple(pts Contour) Contour {
	n := len(pts)
	if n <= 2 {
		return pts
	}
	step := func(a, b Point) Point { return Point{X: sign(b.X - a.X), Y: sign(b.Y - a.Y)} }

	out := make(Contour, 0, n)
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		next := pts[(i+1)%n]
		if i == 0 || step(prev, pts[i]) != step(pts[i], next) {
			out = append(out, pts[i])
		}
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
