package detection

import (
	"image"
	"sort"

	"github.com/golang/geo/r2"
)

// groupCompression is the downsampling factor of the grouping label grid.
const groupCompression = 4

// Group is a union of perimeters lying close to each other, treated as one
// logical shape (for example the inner and outer outline of a dot).
type Group struct {
	// Members indexes the perimeters passed to GroupPerimeters.
	Members []int

	// Points concatenates the member pixels.
	Points []image.Point

	// Bounds encloses all member pixels; Max is exclusive.
	Bounds image.Rectangle

	// Centroid is the mean of Points.
	Centroid r2.Point
}

// Width returns the bounding box width in pixels.
func (g *Group) Width() int { return g.Bounds.Dx() }

// Height returns the bounding box height in pixels.
func (g *Group) Height() int { return g.Bounds.Dy() }

// GroupPerimeters merges nearby perimeters.
//
// Every perimeter is rasterized onto a label grid downsampled by 4. Scanning
// right and down from each labeled cell, any different label met within the
// grouping radius (radiusPercent of the image width, at least one cell) links
// the two perimeters. Groups are the connected components of the link graph
// and are returned in order of their lowest member index.
func GroupPerimeters(perimeters []Perimeter, width, height int, radiusPercent float64) []Group {
	if len(perimeters) == 0 {
		return nil
	}

	gw := width/groupCompression + 1
	gh := height/groupCompression + 1
	labels := make([]int, gw*gh)
	for i := range labels {
		labels[i] = -1
	}

	links := make([][]int, len(perimeters))
	link := func(a, b int) {
		if a == b {
			return
		}
		for _, n := range links[a] {
			if n == b {
				return
			}
		}
		links[a] = append(links[a], b)
		links[b] = append(links[b], a)
	}

	for i := range perimeters {
		for _, p := range perimeters[i].Points {
			cell := (p.Y/groupCompression)*gw + p.X/groupCompression
			if labels[cell] >= 0 {
				link(labels[cell], i)
			}
			labels[cell] = i
		}
	}

	radius := int(radiusPercent / 100 * float64(width) / groupCompression)
	if radius < 1 {
		radius = 1
	}

	for cy := 0; cy < gh; cy++ {
		for cx := 0; cx < gw; cx++ {
			a := labels[cy*gw+cx]
			if a < 0 {
				continue
			}
			for d := 1; d <= radius && cx+d < gw; d++ {
				if b := labels[cy*gw+cx+d]; b >= 0 {
					link(a, b)
				}
			}
			for d := 1; d <= radius && cy+d < gh; d++ {
				if b := labels[(cy+d)*gw+cx]; b >= 0 {
					link(a, b)
				}
			}
		}
	}

	visited := make([]bool, len(perimeters))
	var groups []Group
	for seed := range perimeters {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		stack := []int{seed}
		var members []int
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, n)
			for _, next := range links[n] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Ints(members)
		groups = append(groups, newGroup(perimeters, members))
	}
	return groups
}

func newGroup(perimeters []Perimeter, members []int) Group {
	g := Group{Members: members}
	var sumX, sumY float64
	for _, m := range members {
		p := &perimeters[m]
		if len(g.Points) == 0 {
			g.Bounds = p.Bounds
		} else {
			g.Bounds = g.Bounds.Union(p.Bounds)
		}
		for _, pt := range p.Points {
			sumX += float64(pt.X)
			sumY += float64(pt.Y)
		}
		g.Points = append(g.Points, p.Points...)
	}
	if n := len(g.Points); n > 0 {
		g.Centroid = r2.Point{X: sumX / float64(n), Y: sumY / float64(n)}
	}
	return g
}
