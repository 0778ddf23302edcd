// Package mask hides known genotype calls so that imputation accuracy can be
// measured against the true values.
package mask

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.dedis.ch/onet/v3/log"

	"github.com/hhcho/ldknni/geno"
	"github.com/hhcho/ldknni/impute"
	"github.com/hhcho/ldknni/parallel"
)

var ErrEmptyMask = errors.New("mask: no cells are masked")

// Mask marks cells of a samples x sites matrix. Masked cells are known in
// the matrix the mask was built for.
type Mask struct {
	rows, cols int
	masked     []bool
	count      int
}

func New(rows, cols int) *Mask {
	return &Mask{rows: rows, cols: cols, masked: make([]bool, rows*cols)}
}

// DefaultCount masks one in a hundred known calls.
func DefaultCount(m *geno.Matrix) int {
	return m.KnownCount() / 100
}

// Build masks count known cells of m, drawn uniformly with rng.
func Build(m *geno.Matrix, count int, rng Source) (*Mask, error) {
	known := m.KnownCount()
	if count < 0 || count > known {
		return nil, fmt.Errorf("cannot mask %d cells, %d are known", count, known)
	}
	rows, cols := m.Dims()
	mk := New(rows, cols)
	for mk.count < count {
		s := rng.Intn(rows)
		p := rng.Intn(cols)
		if !m.IsMissing(s, p) && !mk.IsMasked(s, p) {
			mk.set(s, p)
		}
	}
	return mk, nil
}

func (mk *Mask) set(s, p int) {
	if !mk.masked[s*mk.cols+p] {
		mk.masked[s*mk.cols+p] = true
		mk.count++
	}
}

func (mk *Mask) Dims() (int, int) {
	return mk.rows, mk.cols
}

func (mk *Mask) IsMasked(s, p int) bool {
	return mk.masked[s*mk.cols+p]
}

// Count is the number of masked cells.
func (mk *Mask) Count() int {
	return mk.count
}

// List returns the masked cells as (sample, site) pairs in row-major order.
func (mk *Mask) List() [][2]int {
	out := make([][2]int, 0, mk.count)
	for i, v := range mk.masked {
		if v {
			out = append(out, [2]int{i / mk.cols, i % mk.cols})
		}
	}
	return out
}

func (mk *Mask) checkDims(m *geno.Matrix) error {
	rows, cols := m.Dims()
	if rows != mk.rows || cols != mk.cols {
		return &geno.MalformedInputError{Reason: fmt.Sprintf("mask is %dx%d, genotypes are %dx%d", mk.rows, mk.cols, rows, cols)}
	}
	return nil
}

// Check verifies that mk fits m and masks only calls that are known in m.
func (mk *Mask) Check(m *geno.Matrix) error {
	if err := mk.checkDims(m); err != nil {
		return err
	}
	for _, c := range mk.List() {
		if m.IsMissing(c[0], c[1]) {
			return &geno.MalformedInputError{Line: c[0] + 1, Reason: fmt.Sprintf("site %d is masked but its genotype is missing", c[1])}
		}
	}
	return nil
}

// Apply returns a copy of m with the masked cells set missing. m must be the
// unmasked matrix.
func (mk *Mask) Apply(m *geno.Matrix) (*geno.Matrix, error) {
	if err := mk.Check(m); err != nil {
		return nil, err
	}
	out := m.Clone()
	for _, c := range mk.List() {
		out.Set(c[0], c[1], geno.Missing)
	}
	return out, nil
}

// Save writes one line per sample with one character per site, '1' for
// masked cells and '0' otherwise.
func (mk *Mask) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	line := make([]byte, mk.cols+1)
	line[mk.cols] = '\n'
	for s := 0; s < mk.rows; s++ {
		for p := 0; p < mk.cols; p++ {
			if mk.IsMasked(s, p) {
				line[p] = '1'
			} else {
				line[p] = '0'
			}
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load reads a mask written by Save. Any character other than '1' leaves the
// cell unmasked.
func Load(r io.Reader) (*Mask, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<30)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if len(lines) > 0 && len(line) != len(lines[0]) {
			return nil, &geno.MalformedInputError{Line: len(lines) + 1, Reason: fmt.Sprintf("expected %d sites, found %d", len(lines[0]), len(line))}
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return New(0, 0), nil
	}

	mk := New(len(lines), len(lines[0]))
	for s, line := range lines {
		for p := 0; p < len(line); p++ {
			if line[p] == '1' {
				mk.set(s, p)
			}
		}
	}
	return mk, nil
}

// Accuracy is the fraction of masked cells where imputed matches original.
func Accuracy(original, imputed *geno.Matrix, mk *Mask) (float64, error) {
	if err := mk.Check(original); err != nil {
		return 0, err
	}
	if err := mk.checkDims(imputed); err != nil {
		return 0, err
	}
	if mk.count == 0 {
		return 0, ErrEmptyMask
	}
	correct := 0
	for _, c := range mk.List() {
		if original.At(c[0], c[1]) == imputed.At(c[0], c[1]) {
			correct++
		}
	}
	return float64(correct) / float64(mk.count), nil
}

// Evaluator measures the accuracy of several imputers against one mask,
// building the masked view once.
type Evaluator struct {
	original *geno.Matrix
	view     *geno.Matrix
	cells    [][2]int
	threads  int
}

func NewEvaluator(original *geno.Matrix, mk *Mask, threads int) (*Evaluator, error) {
	view, err := mk.Apply(original)
	if err != nil {
		return nil, err
	}
	if mk.count == 0 {
		return nil, ErrEmptyMask
	}
	return &Evaluator{original: original, view: view, cells: mk.List(), threads: threads}, nil
}

// View is the original matrix with the masked calls missing. Imputers are
// always run against this same matrix.
func (e *Evaluator) View() *geno.Matrix {
	return e.view
}

// Accuracy imputes only the masked cells of View with imp. The cells are
// split into contiguous slices, one per worker.
func (e *Evaluator) Accuracy(ctx context.Context, imp impute.CellImputer) (float64, error) {
	cell, err := imp.Cells(ctx, e.view)
	if err != nil {
		return 0, err
	}

	ranges := parallel.Ranges(len(e.cells), parallel.NumThreads(e.threads))
	correct := make([]int, len(ranges))
	err = parallel.For(ctx, len(ranges), e.threads, func(thread, r int) error {
		for _, c := range e.cells[ranges[r][0]:ranges[r][1]] {
			v, err := cell(c[0], c[1])
			if err != nil {
				return err
			}
			if v == e.original.At(c[0], c[1]) {
				correct[r]++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, c := range correct {
		total += c
	}
	log.Lvl2("masked", len(e.cells), "correct", total)
	return float64(total) / float64(len(e.cells)), nil
}

// FastAccuracy measures the same accuracy as imputing the whole masked matrix
// but only imputes the masked cells.
func FastAccuracy(ctx context.Context, original *geno.Matrix, mk *Mask, imp impute.CellImputer, threads int) (float64, error) {
	e, err := NewEvaluator(original, mk, threads)
	if err != nil {
		return 0, err
	}
	return e.Accuracy(ctx, imp)
}
