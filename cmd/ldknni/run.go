package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/raulk/go-watchdog"
	"go.dedis.ch/onet/v3/log"
	"gonum.org/v1/gonum/mat"

	"github.com/hhcho/ldknni/geno"
	"github.com/hhcho/ldknni/impute"
	"github.com/hhcho/ldknni/ld"
	"github.com/hhcho/ldknni/mask"
	"github.com/hhcho/ldknni/optimize"
)

// buildConfig loads the config file and lays the flags the user set on top.
func buildConfig(filename string, changed func(name string) bool) (*geno.Config, error) {
	config, err := geno.LoadConfig(filename)
	if err != nil {
		return nil, err
	}

	if changed("method") {
		config.Method = flags.method
	}
	if changed("format") {
		config.InputFormat = flags.format
	}
	if changed("num-snps") {
		config.NumSnps = flags.numSnps
	}
	if changed("correlation") {
		config.Correlation = flags.correlation
	}
	if changed("neighbours") {
		config.Neighbours = flags.neighbours
	}
	if changed("snps") {
		config.Snps = flags.snps
	}
	if changed("optimize") {
		config.Optimize = flags.optimize
	}
	if changed("masknum") {
		config.MaskNum = flags.maskNum
	}
	if changed("seed") {
		config.MaskSeed = flags.maskSeed
	}
	if changed("ldnum") {
		config.LdNum = flags.ldNum
	}
	if changed("passes") {
		config.Passes = flags.passes
	}
	if changed("threads") {
		config.LocalNumThreads = flags.threads
	}
	if changed("verbose") {
		config.Verbose = flags.verbose
	}

	if err := checkFlags(config, changed); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if _, err := ld.ParseMethod(config.Correlation); err != nil {
		return nil, err
	}
	return config, nil
}

// checkFlags rejects flag combinations that would be silently ignored.
func checkFlags(config *geno.Config, changed func(name string) bool) error {
	switch config.Method {
	case "mode":
		if changed("neighbours") || changed("snps") {
			return errors.New("cannot use neighbours or snps options with mode imputation")
		}
	case "knn":
		if changed("snps") {
			return errors.New("cannot use snps option with kNN imputation")
		}
	}
	if config.Method != "ldknn" && (changed("ldnum") || changed("ldin") || changed("ldout")) {
		return errors.New("LD options can only be used with LD-kNN imputation")
	}
	if changed("ldin") && changed("ldnum") {
		return errors.New("ldnum and ldin options cannot be used together")
	}
	if config.Optimize {
		if changed("snps") || changed("neighbours") {
			return errors.New("cannot set k or l when calculating them (-c)")
		}
		if changed("accuracy") {
			return errors.New("accuracy is calculated automatically with -c")
		}
	}
	return nil
}

type runFiles struct {
	in, out         string
	maskIn, maskOut string
	ldIn, ldOut     string

	accuracy bool
	noImpute bool
}

type writeFunc func(w io.Writer, m *geno.Matrix) error

func readInput(config *geno.Config, filename string) (*geno.Matrix, writeFunc, error) {
	switch config.InputFormat {
	case "array":
		var m *geno.Matrix
		err := geno.ReadFile(filename, func(r io.Reader) (err error) {
			m, err = geno.ReadArray(r)
			return err
		})
		return m, geno.WriteArray, err
	case "bin":
		gfs, err := geno.NewGenoFileStream(filename, 0, uint64(config.NumSnps))
		if err != nil {
			return nil, nil, err
		}
		defer gfs.Close()
		m, err := gfs.ToMatrix()
		return m, geno.WriteGenoBinary, err
	default:
		var pr *geno.PlinkRaw
		err := geno.ReadFile(filename, func(r io.Reader) (err error) {
			pr, err = geno.ReadPlinkRaw(r)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		return pr.Geno, pr.Write, nil
	}
}

func run(ctx context.Context, config *geno.Config, files runFiles, stdout io.Writer) error {
	if config.Verbose {
		log.SetDebugVisible(2)
	}
	if config.MemoryLimit > 0 {
		err, stopFn := watchdog.HeapDriven(config.MemoryLimit, 40, watchdog.NewAdaptivePolicy(0.5))
		if err != nil {
			return err
		}
		defer stopFn()
	}
	if config.LocalNumThreads > 0 {
		runtime.GOMAXPROCS(config.LocalNumThreads)
	}
	corr, err := ld.ParseMethod(config.Correlation)
	if err != nil {
		return err
	}

	original, write, err := readInput(config, files.in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", files.in, err)
	}
	log.LLvl1(time.Now().Format(time.StampMilli), "Read in data set of", original.NumSamples(), "samples and", original.NumSites(), "sites")
	params := geno.InitParams(config, original)

	var sim ld.Index
	if config.Method == "ldknn" {
		if sim, err = buildIndex(ctx, config, files, original, params, corr); err != nil {
			return err
		}
	}

	m := original
	var mk *mask.Mask
	if files.accuracy {
		if mk, err = loadOrBuildMask(config, files, original, params); err != nil {
			return err
		}
		if m, err = mk.Apply(original); err != nil {
			return err
		}
	}

	if files.noImpute {
		log.LLvl1("Not performing imputation (--noimpute given)")
		return nil
	}

	k, l := params.K, params.L
	if config.Optimize && config.Method != "mode" {
		if k, l, err = bestParams(ctx, config, m, params, sim); err != nil {
			return err
		}
	}

	imp := newImputer(config, sim, k, l)
	log.LLvl1(time.Now().Format(time.StampMilli), "Starting", config.Method, "imputation with k =", k, "l =", l)
	imputed, err := imp.Impute(ctx, m)
	if err != nil {
		return err
	}
	log.LLvl1(time.Now().Format(time.StampMilli), "Finished imputation")

	if files.accuracy {
		acc, err := mask.Accuracy(original, imputed, mk)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "Accuracy: %v\n", acc)
		return err
	}
	return geno.WriteFileAtomic(files.out, func(w io.Writer) error {
		return write(w, imputed)
	})
}

func buildIndex(ctx context.Context, config *geno.Config, files runFiles, m *geno.Matrix, params *geno.Params, corr ld.Method) (ld.Index, error) {
	if files.ldIn != "" {
		var stored *ld.Stored
		err := geno.ReadFile(files.ldIn, func(r io.Reader) (err error) {
			stored, err = ld.ReadStored(r, m.NumSites())
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", files.ldIn, err)
		}
		return stored.Truncate(params.LdNum), nil
	}

	opts := ld.Options{Method: corr, Threads: config.LocalNumThreads, Verbose: config.Verbose}
	var sim ld.Index
	if config.LazyIndex {
		calc, err := ld.NewCalculated(m, params.LdNum, corr, config.CacheSize)
		if err != nil {
			return nil, err
		}
		sim = calc
		if files.ldOut != "" {
			if sim, err = calc.Precompute(ctx, opts); err != nil {
				return nil, err
			}
		}
	} else {
		log.LLvl1(time.Now().Format(time.StampMilli), "Calculating correlations")
		stored, err := ld.TopN(ctx, m, params.LdNum, opts)
		if err != nil {
			return nil, err
		}
		sim = stored
	}

	if files.ldOut != "" {
		stored := sim.(*ld.Stored)
		err := geno.WriteFileAtomic(files.ldOut, func(w io.Writer) error {
			_, err := stored.WriteTo(w)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return sim, nil
}

func loadOrBuildMask(config *geno.Config, files runFiles, m *geno.Matrix, params *geno.Params) (*mask.Mask, error) {
	var mk *mask.Mask
	if files.maskIn != "" {
		err := geno.ReadFile(files.maskIn, func(r io.Reader) (err error) {
			mk, err = mask.Load(r)
			return err
		})
		if err == nil {
			err = mk.Check(m)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", files.maskIn, err)
		}
	} else {
		var err error
		if mk, err = buildMask(config, m, params); err != nil {
			return nil, err
		}
	}

	if files.maskOut != "" {
		if err := geno.WriteFileAtomic(files.maskOut, mk.Save); err != nil {
			return nil, err
		}
	}
	return mk, nil
}

func buildMask(config *geno.Config, m *geno.Matrix, params *geno.Params) (*mask.Mask, error) {
	count := params.MaskNum
	if count == 0 {
		count = mask.DefaultCount(m)
	}
	return mask.Build(m, count, mask.NewRandom(config.MaskSeed))
}

func newImputer(config *geno.Config, sim ld.Index, k, l int) impute.CellImputer {
	opts := impute.Options{Threads: config.LocalNumThreads, Verbose: config.Verbose}
	switch config.Method {
	case "mode":
		return impute.NewMode(opts)
	case "knn":
		return impute.NewKnn(k, opts)
	default:
		return impute.NewLDKnn(sim, k, l, impute.LDOptions{
			Options:          opts,
			DistanceConstant: config.DistanceConstant,
			Passes:           config.Passes,
		})
	}
}

// bestParams searches k (and l for LD-kNN) for the highest accuracy on a
// masked copy of m.
func bestParams(ctx context.Context, config *geno.Config, m *geno.Matrix, params *geno.Params, sim ld.Index) (int, int, error) {
	log.LLvl1(time.Now().Format(time.StampMilli), "Calculating best parameters")
	objective, err := newObjective(ctx, config, m, params, sim)
	if err != nil {
		return 0, 0, err
	}

	res, err := optimize.Optimize(ctx, objective, params.StartMax, params.AbsMax)
	if err != nil {
		return 0, 0, err
	}
	if res.Params == nil {
		return 0, 0, errors.New("no parameters could be evaluated")
	}

	k, l := res.Params[0], params.L
	if len(res.Params) > 1 {
		l = res.Params[1]
	}
	log.LLvl1(time.Now().Format(time.StampMilli), "Best k:", k, "Best l:", l, "Accuracy:", res.Value, "Evaluations:", res.Evaluations)
	return k, l, nil
}

// newObjective masks m once and scores (k) or (k, l) by the accuracy on the
// masked cells. kNN distances do not depend on k and are computed once.
func newObjective(ctx context.Context, config *geno.Config, m *geno.Matrix, params *geno.Params, sim ld.Index) (optimize.Objective, error) {
	mk, err := buildMask(config, m, params)
	if err != nil {
		return nil, err
	}
	ev, err := mask.NewEvaluator(m, mk, config.LocalNumThreads)
	if err != nil {
		return nil, err
	}

	quiet := *config
	quiet.Verbose = false
	opts := impute.Options{Threads: quiet.LocalNumThreads}
	var dist *mat.SymDense
	if config.Method == "knn" {
		if dist, err = impute.NewKnn(1, opts).Distances(ctx, ev.View()); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, p []int) (float64, error) {
		k, l := p[0], params.L
		if len(p) > 1 {
			l = p[1]
		}
		if dist != nil {
			return ev.Accuracy(ctx, impute.NewKnnDistances(k, ev.View(), dist, opts))
		}
		return ev.Accuracy(ctx, newImputer(&quiet, sim, k, l))
	}, nil
}
