package impute

import (
	"context"
	"math"
	"time"

	"go.dedis.ch/onet/v3/log"
	"gonum.org/v1/gonum/mat"

	"github.com/hhcho/ldknni/geno"
	"github.com/hhcho/ldknni/parallel"
)

// Knn imputes from the K samples nearest over all sites.
type Knn struct {
	K    int
	opts Options

	// base and dist, when set, are a matrix and its Distances.
	base *geno.Matrix
	dist *mat.SymDense
}

func NewKnn(k int, opts Options) *Knn {
	return &Knn{K: k, opts: opts}
}

// NewKnnDistances returns a Knn that uses dist, the Distances of m, whenever
// it imputes m itself instead of computing them again. Distances do not
// depend on k, so one matrix serves every k tried on m.
func NewKnnDistances(k int, m *geno.Matrix, dist *mat.SymDense, opts Options) *Knn {
	return &Knn{K: k, opts: opts, base: m, dist: dist}
}

// Distances returns the symmetric sample x sample distance matrix of m: the
// taxicab distance over sites called in both samples, scaled up to the full
// number of sites. Pairs sharing no called site are +Inf apart.
func (k *Knn) Distances(ctx context.Context, m *geno.Matrix) (*mat.SymDense, error) {
	numSamples, numSites := m.Dims()
	if numSamples == 0 {
		return &mat.SymDense{}, nil
	}
	dist := mat.NewSymDense(numSamples, nil)
	err := parallel.For(ctx, numSamples, k.opts.Threads, func(thread, i int) error {
		a := m.Row(i)
		for j := i + 1; j < numSamples; j++ {
			d, c := taxicab(a, m.Row(j))
			if c == 0 {
				dist.SetSym(i, j, math.Inf(1))
			} else {
				dist.SetSym(i, j, float64(d)*float64(numSites)/float64(c))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dist, nil
}

// taxicab sums |a - b| over the sites called in both, returning the sum and
// how many sites were compared.
func taxicab(a, b []int8) (d, c int) {
	for s := range a {
		if a[s] == geno.Missing || b[s] == geno.Missing {
			continue
		}
		c++
		if a[s] > b[s] {
			d += int(a[s] - b[s])
		} else {
			d += int(b[s] - a[s])
		}
	}
	return d, c
}

type knnState struct {
	k    int
	m    *geno.Matrix
	dist *mat.SymDense
}

func (st *knnState) order(s int) ([]int, []float64) {
	dist := make([]float64, st.m.NumSamples())
	for q := range dist {
		dist[q] = st.dist.At(s, q)
	}
	return rank(dist, s, nil), dist
}

func (st *knnState) cell(s, p int) (int8, error) {
	if v := st.m.At(s, p); v != geno.Missing {
		return v, nil
	}
	order, dist := st.order(s)
	return vote(st.m, p, st.k, order, dist)
}

func (k *Knn) state(ctx context.Context, m *geno.Matrix) (*knnState, error) {
	if k.dist != nil && m == k.base {
		return &knnState{k: k.K, m: m, dist: k.dist}, nil
	}
	dist, err := k.Distances(ctx, m)
	if err != nil {
		return nil, err
	}
	return &knnState{k: k.K, m: m, dist: dist}, nil
}

// Cells precomputes the distances of m once; each call then ranks the samples
// around s and votes.
func (k *Knn) Cells(ctx context.Context, m *geno.Matrix) (CellFunc, error) {
	st, err := k.state(ctx, m)
	if err != nil {
		return nil, err
	}
	return st.cell, nil
}

func (k *Knn) Impute(ctx context.Context, m *geno.Matrix) (*geno.Matrix, error) {
	start := time.Now()
	st, err := k.state(ctx, m)
	if err != nil {
		return nil, err
	}
	if k.opts.Verbose {
		log.LLvl1(time.Now().Format(time.StampMilli), "Distances done:", time.Since(start))
	}

	numSamples, numSites := m.Dims()
	out := m.Clone()
	err = parallel.For(ctx, numSamples, k.opts.Threads, func(thread, s int) error {
		var order []int
		var dist []float64
		for p := 0; p < numSites; p++ {
			if !m.IsMissing(s, p) {
				continue
			}
			if order == nil {
				order, dist = st.order(s)
			}
			v, err := vote(m, p, k.K, order, dist)
			if err != nil {
				return err
			}
			out.Set(s, p, v)
		}
		if k.opts.Verbose {
			log.Lvl3("thread", thread, "imputed sample", s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if k.opts.Verbose {
		log.LLvl1(time.Now().Format(time.StampMilli), "kNN imputation done:", time.Since(start))
	}
	return out, nil
}
