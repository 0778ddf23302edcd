// Package impute fills in missing genotype calls.
//
// Knn and LDKnn vote among the K nearest samples that have a call at the
// target site, weighting each by inverse distance. Knn measures distance over
// every site, LDKnn only over the sites most in linkage disequilibrium with
// the target. Mode is a baseline taking the commonest call at each site.
package impute

import (
	"context"

	"github.com/hhcho/ldknni/geno"
)

// Imputer returns a copy of m with every missing call filled in. Known calls
// are always copied through unchanged.
type Imputer interface {
	Impute(ctx context.Context, m *geno.Matrix) (*geno.Matrix, error)
}

// CellFunc imputes the call of sample s at site p.
type CellFunc func(s, p int) (int8, error)

// CellImputer can impute single cells of m without filling the whole matrix.
// The returned CellFunc is safe for concurrent use.
type CellImputer interface {
	Imputer
	Cells(ctx context.Context, m *geno.Matrix) (CellFunc, error)
}

type Options struct {
	Threads int // zero means GOMAXPROCS
	Verbose bool
}
