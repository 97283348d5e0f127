package grid

import (
	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/detection"
)

// Unassigned marks a grid coordinate that topology propagation never reached.
const Unassigned = 9999

// Direction indexes the link slots of a dot.
type Direction int

// Link directions in screen terms.
const (
	Up Direction = iota
	Right
	Down
	Left
)

var directionNames = [...]string{"up", "right", "down", "left"}

func (d Direction) String() string {
	if d < Up || d > Left {
		return "invalid"
	}
	return directionNames[d]
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// Horizontal reports whether the direction is left or right.
func (d Direction) Horizontal() bool {
	return d == Right || d == Left
}

// CalibrationDot is a detected dot with its place in the grid.
//
// Links hold the index of the neighboring dot in each direction, or -1.
// Visited records which directions have been searched by LinkDots.
type CalibrationDot struct {
	detection.Dot

	GridX int `json:"grid_x"`
	GridY int `json:"grid_y"`

	Links   [4]int  `json:"links"`
	Visited [4]bool `json:"-"`
}

// Pos returns the dot center.
func (d *CalibrationDot) Pos() r2.Point {
	return d.Center
}

// Assigned reports whether the dot received grid coordinates.
func (d *CalibrationDot) Assigned() bool {
	return d.GridX != Unassigned && d.GridY != Unassigned
}

// Neighbor returns the linked dot index in direction dir.
func (d *CalibrationDot) Neighbor(dir Direction) (int, bool) {
	n := d.Links[dir]
	return n, n >= 0
}

// NewDots wraps detected dots with unassigned coordinates and no links.
func NewDots(dots []detection.Dot) []CalibrationDot {
	out := make([]CalibrationDot, len(dots))
	for i, d := range dots {
		out[i] = CalibrationDot{
			Dot:   d,
			GridX: Unassigned,
			GridY: Unassigned,
			Links: [4]int{-1, -1, -1, -1},
		}
	}
	return out
}
