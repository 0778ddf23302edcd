package impute

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.dedis.ch/onet/v3/log"

	"github.com/hhcho/ldknni/geno"
	"github.com/hhcho/ldknni/ld"
	"github.com/hhcho/ldknni/parallel"
)

type LDOptions struct {
	Options

	// DistanceConstant is added to every finite distance.
	DistanceConstant float64
	// Passes is 1 or 2. A second pass re-imputes the missing calls with the
	// first pass output as the reference panel.
	Passes int
}

func DefaultLDOptions() LDOptions {
	return LDOptions{DistanceConstant: 1.0, Passes: 1}
}

// LDKnn imputes a call at site p from the K samples nearest over the L sites
// most correlated with p.
type LDKnn struct {
	sim  ld.Index
	K    int
	L    int
	opts LDOptions
}

func NewLDKnn(sim ld.Index, k, l int, opts LDOptions) *LDKnn {
	if opts.Passes < 1 {
		opts.Passes = 1
	}
	return &LDKnn{sim: sim, K: k, L: l, opts: opts}
}

// distance between samples a and b around site p, over the sites ranked most
// similar to p.
func (l *LDKnn) distance(m *geno.Matrix, a, b int, sites []int) float64 {
	ra, rb := m.Row(a), m.Row(b)
	d, c := 0, 0
	for _, i := range sites {
		p1, p2 := ra[i], rb[i]
		if p1 == geno.Missing || p2 == geno.Missing {
			continue
		}
		c++
		if p1 > p2 {
			d += int(p1 - p2)
		} else {
			d += int(p2 - p1)
		}
	}
	if c == 0 {
		return math.Inf(1)
	}
	return float64(d)*float64(len(sites))/float64(c) + l.opts.DistanceConstant
}

func (l *LDKnn) sites(p int) []int {
	sim := l.sim.Similar(p)
	return sim[:geno.Min(l.L, len(sim))]
}

// cell imputes (s, p) using ref for distances and neighbour calls. dist and
// order are scratch space.
func (l *LDKnn) cell(ref *geno.Matrix, s, p int, dist []float64, order []int) (int8, error) {
	sites := l.sites(p)
	for q := range dist {
		if q != s {
			dist[q] = l.distance(ref, s, q, sites)
		}
	}
	return vote(ref, p, l.K, rank(dist, s, order), dist)
}

// pass fills the calls missing in m, reading distances and neighbours from
// ref. The work is split per sample into chunks of sites.
func (l *LDKnn) pass(ctx context.Context, m, ref *geno.Matrix) (*geno.Matrix, error) {
	numSamples, numSites := m.Dims()
	out := m.Clone()
	if numSamples == 0 || numSites == 0 {
		return out, nil
	}

	nproc := parallel.NumThreads(l.opts.Threads)
	chunks := parallel.Ranges(numSites, geno.Min(nproc, numSites))
	start := time.Now()

	err := parallel.For(ctx, numSamples*len(chunks), nproc, func(thread, t int) error {
		s := t / len(chunks)
		r := chunks[t%len(chunks)]
		var dist []float64
		var order []int
		for p := r[0]; p < r[1]; p++ {
			if !m.IsMissing(s, p) {
				continue
			}
			if dist == nil {
				dist = make([]float64, numSamples)
				order = make([]int, 0, numSamples)
			}
			v, err := l.cell(ref, s, p, dist, order)
			if err != nil {
				return err
			}
			out.Set(s, p, v)
		}
		if l.opts.Verbose && t%len(chunks) == len(chunks)-1 {
			log.Lvl2("sample", s+1, "of", numSamples, "done", time.Since(start))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *LDKnn) check(m *geno.Matrix) error {
	if l.sim.Len() != m.NumSites() {
		return &geno.MalformedInputError{Reason: fmt.Sprintf("LD index covers %d sites, genotypes have %d", l.sim.Len(), m.NumSites())}
	}
	return nil
}

func (l *LDKnn) Impute(ctx context.Context, m *geno.Matrix) (*geno.Matrix, error) {
	if err := l.check(m); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := l.pass(ctx, m, m)
	if err != nil {
		return nil, err
	}
	if l.opts.Passes > 1 {
		if l.opts.Verbose {
			log.LLvl1(time.Now().Format(time.StampMilli), "First pass done:", time.Since(start))
		}
		out, err = l.pass(ctx, m, out)
		if err != nil {
			return nil, err
		}
	}
	if l.opts.Verbose {
		log.LLvl1(time.Now().Format(time.StampMilli), "LD-kNN imputation done:", time.Since(start))
	}
	return out, nil
}

// Cells imputes single cells of m. With two passes the first pass over the
// whole of m is run up front.
func (l *LDKnn) Cells(ctx context.Context, m *geno.Matrix) (CellFunc, error) {
	if err := l.check(m); err != nil {
		return nil, err
	}
	ref := m
	if l.opts.Passes > 1 {
		var err error
		if ref, err = l.pass(ctx, m, m); err != nil {
			return nil, err
		}
	}
	return func(s, p int) (int8, error) {
		if v := m.At(s, p); v != geno.Missing {
			return v, nil
		}
		dist := make([]float64, m.NumSamples())
		return l.cell(ref, s, p, dist, make([]int, 0, len(dist)))
	}, nil
}
