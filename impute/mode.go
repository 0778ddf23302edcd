package impute

import (
	"context"

	"github.com/hhcho/ldknni/geno"
	"github.com/hhcho/ldknni/parallel"
)

// Mode fills every missing call with the commonest known call at its site.
type Mode struct {
	opts Options
}

func NewMode(opts Options) *Mode {
	return &Mode{opts: opts}
}

// Modes returns the modal known call of every site, ties going to the lower
// dosage. A site with no known call gets 0.
func (md *Mode) Modes(ctx context.Context, m *geno.Matrix) ([]int8, error) {
	numSamples, numSites := m.Dims()
	modes := make([]int8, numSites)
	err := parallel.For(ctx, numSites, md.opts.Threads, func(thread, p int) error {
		var c [3]int
		for s := 0; s < numSamples; s++ {
			if v := m.At(s, p); v != geno.Missing {
				c[v]++
			}
		}
		best := 0
		for v := 1; v < 3; v++ {
			if c[v] > c[best] {
				best = v
			}
		}
		modes[p] = int8(best)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return modes, nil
}

func (md *Mode) Impute(ctx context.Context, m *geno.Matrix) (*geno.Matrix, error) {
	modes, err := md.Modes(ctx, m)
	if err != nil {
		return nil, err
	}
	numSamples, numSites := m.Dims()
	out := m.Clone()
	for s := 0; s < numSamples; s++ {
		for p := 0; p < numSites; p++ {
			if out.IsMissing(s, p) {
				out.Set(s, p, modes[p])
			}
		}
	}
	return out, nil
}

func (md *Mode) Cells(ctx context.Context, m *geno.Matrix) (CellFunc, error) {
	modes, err := md.Modes(ctx, m)
	if err != nil {
		return nil, err
	}
	return func(s, p int) (int8, error) {
		if v := m.At(s, p); v != geno.Missing {
			return v, nil
		}
		return modes[p], nil
	}, nil
}
