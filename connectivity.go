package slic

// 4-connectivity scanned as left, up, right, down.
var (
	dx4 = [4]int{-1, 0, 1, 0}
	dy4 = [4]int{0, -1, 0, 1}
)

// enforceConnectivity relabels labels so that every output label is one
// 4-connected region. Regions of at most supsz/4 pixels are merged into the
// label of a neighbour found next to their first pixel and do not consume a
// label index. It returns a fresh label slice and the number of labels.
//
// The fallback label starts at 0, so an undersized region at the origin is
// merged into label 0, which is also the index the next kept region receives.
func enforceConnectivity(labels []int, w, h, supsz int) ([]int, int) {
	nlabels := make([]int, w*h)
	for i := range nlabels {
		nlabels[i] = -1
	}
	segment := make([]int, 0, supsz)
	label := 0
	adjLabel := 0
	for y := range h {
		for x := range w {
			start := labelOffset(w, x, y)
			if nlabels[start] >= 0 {
				continue
			}
			nlabels[start] = label

			// Remember the last labelled neighbour in scan order.
			for n := range 4 {
				nx, ny := x+dx4[n], y+dy4[n]
				if nx >= 0 && nx < w && ny >= 0 && ny < h {
					if l := nlabels[labelOffset(w, nx, ny)]; l >= 0 {
						adjLabel = l
					}
				}
			}

			segment = append(segment[:0], start)
			for c := 0; c < len(segment); c++ {
				cur := segment[c]
				cx, cy := cur%w, cur/w
				for n := range 4 {
					nx, ny := cx+dx4[n], cy+dy4[n]
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					nIdx := labelOffset(w, nx, ny)
					if nlabels[nIdx] < 0 && labels[nIdx] == labels[start] {
						nlabels[nIdx] = label
						segment = append(segment, nIdx)
					}
				}
			}

			if len(segment) <= supsz>>2 {
				for _, p := range segment {
					nlabels[p] = adjLabel
				}
				continue
			}
			label++
		}
	}
	return nlabels, label
}
