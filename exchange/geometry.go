package exchange

import "gonum.org/v1/gonum/spatial/r3"

// haloFragments returns every non-bulk fragment whose subdomain a particle
// at local-frame position p lies within rc of, possibly more than one for a
// particle near a corner or edge (spec.md §4.4: "a particle within rc of
// more than one face belongs to every such fragment's halo").
func haloFragments(p r3.Vec, localSize r3.Vec, rc float64) []int {
	var out []int
	for i := 0; i < BulkFragment; i++ {
		d := FragmentDir(i)
		if nearFace(p.X, localSize.X, d[0], rc) &&
			nearFace(p.Y, localSize.Y, d[1], rc) &&
			nearFace(p.Z, localSize.Z, d[2], rc) {
			out = append(out, i)
		}
	}
	return out
}

func nearFace(x, extent float64, d int, rc float64) bool {
	switch d {
	case -1:
		return x < rc
	case 1:
		return x > extent-rc
	default:
		return true
	}
}

// shiftForFragment returns the local-to-receiver coordinate shift for
// fragment i: the receiver's local frame origin sits shift further along
// each axis than this rank's, so a departing/haloed position is re-expressed
// as p-shift (spec.md §4.4 coordinate-shift packing).
func shiftForFragment(i int, localSize r3.Vec) r3.Vec {
	d := FragmentDir(i)
	return r3.Vec{X: float64(d[0]) * localSize.X, Y: float64(d[1]) * localSize.Y, Z: float64(d[2]) * localSize.Z}
}

// departureFragment returns the single fragment a position that has left
// the local subdomain belongs to, and false if it is still inside (spec.md
// §4.4: "a redistributed particle has left along at least one axis, and
// crossing is resolved per-axis into exactly one of the 26 neighbour
// directions").
func departureFragment(p r3.Vec, localSize r3.Vec) (int, bool) {
	dx := departureAxis(p.X, localSize.X)
	dy := departureAxis(p.Y, localSize.Y)
	dz := departureAxis(p.Z, localSize.Z)
	if dx == 0 && dy == 0 && dz == 0 {
		return BulkFragment, false
	}
	return FragmentIndex(dx, dy, dz), true
}

func departureAxis(x, extent float64) int {
	switch {
	case x < 0:
		return -1
	case x >= extent:
		return 1
	default:
		return 0
	}
}

// boundingBoxFragments returns every non-bulk fragment whose subdomain an
// axis-aligned box [lo,hi] touches within rc, the object-granularity
// analogue of haloFragments (spec.md §4.4, ObjectHaloExchanger).
func boundingBoxFragments(lo, hi r3.Vec, localSize r3.Vec, rc float64) []int {
	var out []int
	for i := 0; i < BulkFragment; i++ {
		d := FragmentDir(i)
		if boxNearFace(lo.X, hi.X, localSize.X, d[0], rc) &&
			boxNearFace(lo.Y, hi.Y, localSize.Y, d[1], rc) &&
			boxNearFace(lo.Z, hi.Z, localSize.Z, d[2], rc) {
			out = append(out, i)
		}
	}
	return out
}

func boxNearFace(lo, hi, extent float64, d int, rc float64) bool {
	switch d {
	case -1:
		return lo < rc
	case 1:
		return hi > extent-rc
	default:
		return true
	}
}
