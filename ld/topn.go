package ld

import (
	"context"
	"time"

	"go.dedis.ch/onet/v3/log"
	"gonum.org/v1/gonum/mat"

	"github.com/hhcho/ldknni/geno"
	"github.com/hhcho/ldknni/parallel"
)

// Options control how correlations are computed.
type Options struct {
	Method  Method
	Threads int // zero means GOMAXPROCS
	Verbose bool
}

// progressEvery is how many sites pass between progress log lines.
const progressEvery = 1000

// Calculate returns the symmetric site x site correlation matrix of m with a
// zero diagonal.
func Calculate(ctx context.Context, m *geno.Matrix, opts Options) (*mat.SymDense, error) {
	sites := m.T()
	numSites := sites.NumSamples()
	if numSites == 0 {
		return &mat.SymDense{}, nil
	}
	score := opts.Method.scoreFunc()
	res := mat.NewSymDense(numSites, nil)

	// Each row task writes only its own upper-triangle cells.
	err := parallel.For(ctx, numSites, opts.Threads, func(thread, i int) error {
		for j := i + 1; j < numSites; j++ {
			res.SetSym(i, j, score(sites.Row(i), sites.Row(j)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TopN ranks, for every site, the n other sites most correlated with it.
func TopN(ctx context.Context, m *geno.Matrix, n int, opts Options) (*Stored, error) {
	start := time.Now()
	sites := m.T()
	numSites := sites.NumSamples()
	score := opts.Method.scoreFunc()

	work := make([]*TopQueue[int, float64], numSites)
	for i := range work {
		work[i] = NewTopQueue[int, float64](n, true)
	}

	if opts.Verbose {
		log.LLvl1(time.Now().Format(time.StampMilli), "Calculating", opts.Method, "correlations for", numSites, "sites")
	}

	err := parallel.For(ctx, numSites, opts.Threads, func(thread, i int) error {
		for j := i + 1; j < numSites; j++ {
			v := score(sites.Row(i), sites.Row(j))
			work[i].Add(j, v)
			work[j].Add(i, v)
		}
		if opts.Verbose && (i+1)%progressEvery == 0 {
			log.Lvl2("thread", thread, "done site", i+1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sim := make([][]int, numSites)
	for i, q := range work {
		sim[i] = q.List()
	}

	if opts.Verbose {
		log.LLvl1(time.Now().Format(time.StampMilli), "Correlations done:", time.Since(start))
	}
	return NewStored(sim), nil
}

// TopNSite ranks the n sites most correlated with site p. sites is the
// transposed (sites x samples) matrix.
func TopNSite(sites *geno.Matrix, p, n int, method Method) []int {
	score := method.scoreFunc()
	q := NewTopQueue[int, float64](n, true)
	for j := 0; j < sites.NumSamples(); j++ {
		if j != p {
			q.Add(j, score(sites.Row(p), sites.Row(j)))
		}
	}
	return q.List()
}
