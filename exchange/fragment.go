// Package exchange implements the halo and redistribution transport of
// spec.md §4.4: a 27-fragment neighbour model, per-(PV,kind)
// ExchangeHelper buffers, the four ParticleExchanger variants, and the
// two ExchangeEngine implementations (single-node and MPI).
package exchange

// NumFragments is the size of the neighbour-slot table: 26 genuine
// neighbours (every nonzero direction code in {-1,0,1}³) plus the bulk
// (self) fragment.
const NumFragments = 27

// BulkFragment is the "(0,0,0)" self fragment, fixed at slot 26 per
// spec.md §4.4.
const BulkFragment = 26

var fragmentDirs [NumFragments][3]int

func init() {
	idx := 0
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				fragmentDirs[idx] = [3]int{dx, dy, dz}
				idx++
			}
		}
	}
	fragmentDirs[BulkFragment] = [3]int{0, 0, 0}
}

// FragmentDir returns the (dx,dy,dz) direction code of fragment slot i.
func FragmentDir(i int) [3]int { return fragmentDirs[i] }

// FragmentIndex returns the slot index for direction (dx,dy,dz); the self
// direction always maps to BulkFragment.
func FragmentIndex(dx, dy, dz int) int {
	if dx == 0 && dy == 0 && dz == 0 {
		return BulkFragment
	}
	for i := 0; i < BulkFragment; i++ {
		d := fragmentDirs[i]
		if d[0] == dx && d[1] == dy && d[2] == dz {
			return i
		}
	}
	return -1
}

// Fragments returns a closure-friendly iterator over the 26 non-bulk
// fragment slots, the ones that ever carry a message off-rank.
func Fragments() []int {
	out := make([]int, BulkFragment)
	for i := range out {
		out[i] = i
	}
	return out
}
