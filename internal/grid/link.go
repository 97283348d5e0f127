package grid

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// linkTolerance is the search radius around a predicted neighbor position,
// as a fraction of the basis vector length.
const linkTolerance = 0.3

var (
	// ErrNoCenterDot is returned when no dot is flagged as the center.
	ErrNoCenterDot = errors.New("no center dot found")

	// ErrCenterNeighbors is returned when one of the four quadrants around
	// the center dot holds no dot.
	ErrCenterNeighbors = errors.New("center dot does not have four neighbors")
)

// Center neighbor slots, in the order they are seeded.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// seedCoords are the grid coordinates given to the four dots around the center
// dot. Grid y grows upward.
var seedCoords = [4][2]int{
	TopLeft:     {-1, 1},
	TopRight:    {0, 1},
	BottomRight: {0, 0},
	BottomLeft:  {-1, 0},
}

// FindCenterDots returns the indices of the nearest dot in each quadrant
// around the center dot, in TopLeft, TopRight, BottomRight, BottomLeft order.
// Quadrant membership uses strict comparisons on both axes.
func FindCenterDots(dots []CalibrationDot) ([4]int, error) {
	centers := [4]int{-1, -1, -1, -1}

	center := -1
	for i := range dots {
		if dots[i].IsCenter {
			center = i
			break
		}
	}
	if center < 0 {
		return centers, ErrNoCenterDot
	}

	c := dots[center].Pos()
	var best [4]float64
	for i := range dots {
		if i == center {
			continue
		}
		p := dots[i].Pos()
		q := -1
		switch {
		case p.X < c.X && p.Y < c.Y:
			q = TopLeft
		case p.X > c.X && p.Y < c.Y:
			q = TopRight
		case p.X > c.X && p.Y > c.Y:
			q = BottomRight
		case p.X < c.X && p.Y > c.Y:
			q = BottomLeft
		}
		if q < 0 {
			continue
		}
		d := p.Sub(c).Norm()
		if centers[q] < 0 || d < best[q] {
			centers[q], best[q] = i, d
		}
	}

	for _, i := range centers {
		if i < 0 {
			return centers, ErrCenterNeighbors
		}
	}
	return centers, nil
}

// basis is the local grid step: h points one column right, v one row down
// (both in screen coordinates).
type basis struct {
	h, v r2.Point
}

func (b basis) offset(dir Direction) r2.Point {
	switch dir {
	case Up:
		return b.v.Mul(-1)
	case Right:
		return b.h
	case Down:
		return b.v
	default:
		return b.h.Mul(-1)
	}
}

// refine replaces the basis vector along dir by the measured step, keeping it
// pointing right (h) or down (v).
func (b basis) refine(dir Direction, step r2.Point) basis {
	switch dir {
	case Right:
		b.h = step
	case Left:
		b.h = step.Mul(-1)
	case Down:
		b.v = step
	case Up:
		b.v = step.Mul(-1)
	}
	return b
}

// LinkDots links each dot to its neighbors above, right, below and left.
//
// The initial basis comes from the four center dots. Starting from them, each
// dot searches every direction once for the nearest dot within 30% of the
// basis length of the predicted position. A found neighbor is linked both
// ways and queued with the basis refined by the measured step, so the basis
// follows lens distortion across the grid. The center dot itself is never
// linked. It returns the number of links created.
func LinkDots(dots []CalibrationDot, centers [4]int) int {
	tl := dots[centers[TopLeft]].Pos()
	tr := dots[centers[TopRight]].Pos()
	br := dots[centers[BottomRight]].Pos()
	bl := dots[centers[BottomLeft]].Pos()
	b0 := basis{
		h: tr.Sub(tl).Add(br.Sub(bl)).Mul(0.5),
		v: bl.Sub(tl).Add(br.Sub(tr)).Mul(0.5),
	}

	type item struct {
		dot int
		b   basis
	}
	queued := make([]bool, len(dots))
	var queue []item
	for _, c := range centers {
		if !queued[c] {
			queued[c] = true
			queue = append(queue, item{dot: c, b: b0})
		}
	}

	links := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := &dots[cur.dot]

		for dir := Up; dir <= Left; dir++ {
			if d.Visited[dir] {
				continue
			}
			d.Visited[dir] = true

			off := cur.b.offset(dir)
			tol := linkTolerance * off.Norm()
			if tol == 0 {
				continue
			}
			n := nearestDot(dots, d.Pos().Add(off), tol, cur.dot, dir.Opposite())
			if n < 0 {
				continue
			}

			opp := dir.Opposite()
			d.Links[dir] = n
			dots[n].Links[opp] = cur.dot
			dots[n].Visited[opp] = true
			links++

			if !queued[n] {
				queued[n] = true
				queue = append(queue, item{dot: n, b: cur.b.refine(dir, dots[n].Pos().Sub(d.Pos()))})
			}
		}
	}
	return links
}

// nearestDot finds the closest non-center dot to target within tol whose
// slot facing back has not been searched yet.
func nearestDot(dots []CalibrationDot, target r2.Point, tol float64, self int, back Direction) int {
	best, bestD := -1, math.Inf(1)
	for i := range dots {
		if i == self || dots[i].IsCenter || dots[i].Visited[back] {
			continue
		}
		if d := dots[i].Pos().Sub(target).Norm(); d <= tol && d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
