package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.dedis.ch/onet/v3/log"
)

var flags struct {
	config string

	method      string
	format      string
	numSnps     int
	correlation string

	neighbours int
	snps       int
	optimize   bool

	accuracy bool
	maskNum  int
	maskIn   string
	maskOut  string
	maskSeed uint64

	ldNum int
	ldIn  string
	ldOut string

	noImpute bool
	passes   int
	threads  int
	verbose  bool
}

var rootCmd = &cobra.Command{
	Use:   "ldknni [flags] INFILE OUTFILE",
	Short: "Impute missing genotypes with LD-kNN, kNN or mode imputation",
	Long: `Imputes any missing values in the input file.

The output file is in the same format as the input and is identical except
for missing values being replaced by imputed values. It is only written once
imputation has succeeded.`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := buildConfig(flags.config, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		return run(cmd.Context(), config, runFiles{
			in:       args[0],
			out:      args[1],
			maskIn:   flags.maskIn,
			maskOut:  flags.maskOut,
			ldIn:     flags.ldIn,
			ldOut:    flags.ldOut,
			accuracy: flags.accuracy,
			noImpute: flags.noImpute,
		}, os.Stdout)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.config, "config", "", "TOML config file; flags override its values")

	f.StringVar(&flags.method, "method", "ldknn", "imputation method: ldknn, knn or mode")
	f.StringVar(&flags.format, "format", "raw", "input format: raw (plink .raw), array or bin")
	f.IntVar(&flags.numSnps, "num-snps", 0, "sites per sample in bin input")
	f.StringVar(&flags.correlation, "correlation", "pearson", "LD measure: pearson, hamming or em")

	f.IntVar(&flags.neighbours, "neighbours", 5, "number of neighbours used by the kNN methods")
	f.IntVar(&flags.snps, "snps", 20, "number of sites used to find neighbours in LD-kNN")
	f.BoolVarP(&flags.optimize, "optimize", "c", false, "calculate the best values of k and l on a masked copy")

	f.BoolVar(&flags.accuracy, "accuracy", false, "mask known calls and report imputation accuracy instead of writing output")
	f.IntVar(&flags.maskNum, "masknum", 0, "number of calls to mask with -c or --accuracy (default 1% of known calls)")
	f.StringVar(&flags.maskIn, "maskin", "", "read the mask from this file instead of creating one")
	f.StringVar(&flags.maskOut, "maskout", "", "write the mask to this file")
	f.Uint64Var(&flags.maskSeed, "seed", 0, "seed of the masking PRG")

	f.IntVar(&flags.ldNum, "ldnum", 0, "number of most correlated sites to keep per site (default snps)")
	f.StringVar(&flags.ldIn, "ldin", "", "read LD rankings from this file instead of calculating them")
	f.StringVar(&flags.ldOut, "ldout", "", "write LD rankings to this file")

	f.BoolVar(&flags.noImpute, "noimpute", false, "stop before imputation, e.g. when only the mask or LD file is wanted")
	f.IntVar(&flags.passes, "passes", 1, "LD-kNN passes (2 re-imputes with the first pass as reference)")
	f.IntVar(&flags.threads, "threads", 0, "worker threads (default GOMAXPROCS)")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "log progress")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
