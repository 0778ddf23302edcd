package impute

import (
	"sort"

	"github.com/hhcho/ldknni/geno"
)

// rank orders every sample but self by ascending distance, ties by index.
func rank(dist []float64, self int, order []int) []int {
	order = order[:0]
	for q := range dist {
		if q != self {
			order = append(order, q)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dist[order[a]] < dist[order[b]]
	})
	return order
}

// vote walks the ranked samples until k of them have a call at site p and
// returns the call with the largest summed inverse distance. A sample at
// distance zero weighs +Inf. Ties go to the lower dosage.
func vote(m *geno.Matrix, p, k int, order []int, dist []float64) (int8, error) {
	var w [3]float64
	found := 0
	for _, q := range order {
		if found == k {
			break
		}
		o := m.At(q, p)
		if o == geno.Missing {
			continue
		}
		w[o] += 1.0 / dist[q]
		found++
	}
	if found < k {
		return 0, &NotEnoughGenotypesError{Site: p, K: k}
	}

	if w[0] >= w[1] && w[0] >= w[2] {
		return 0, nil
	}
	if w[1] >= w[2] {
		return 1, nil
	}
	return 2, nil
}
