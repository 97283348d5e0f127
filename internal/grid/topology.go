package grid

// ApplyGrid assigns integer coordinates to every dot reachable through links
// from the four center dots.
//
// The seeds get (-1,1), (0,1), (0,0) and (-1,0). Propagation is breadth first:
// a horizontal neighbor lying further right gets x+1, otherwise x-1; a
// vertical neighbor lying lower in the image gets y-1, otherwise y+1. A dot
// keeps the first coordinates it receives. It returns the number of dots
// assigned.
func ApplyGrid(dots []CalibrationDot, centers [4]int) int {
	queue := make([]int, 0, len(dots))
	for slot, i := range centers {
		d := &dots[i]
		if d.Assigned() {
			continue
		}
		d.GridX, d.GridY = seedCoords[slot][0], seedCoords[slot][1]
		queue = append(queue, i)
	}

	assigned := len(queue)
	for len(queue) > 0 {
		cur := &dots[queue[0]]
		queue = queue[1:]

		for dir := Up; dir <= Left; dir++ {
			n, ok := cur.Neighbor(dir)
			if !ok || dots[n].Assigned() {
				continue
			}
			nb := &dots[n]
			nb.GridX, nb.GridY = cur.GridX, cur.GridY
			if dir.Horizontal() {
				if nb.Center.X > cur.Center.X {
					nb.GridX++
				} else {
					nb.GridX--
				}
			} else {
				if nb.Center.Y > cur.Center.Y {
					nb.GridY--
				} else {
					nb.GridY++
				}
			}
			assigned++
			queue = append(queue, n)
		}
	}
	return assigned
}
