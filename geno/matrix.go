package geno

import (
	"fmt"
)

// Missing is the dosage value of an uncalled genotype.
const Missing int8 = -1

// Matrix is a samples x sites matrix of additive dosages in {0, 1, 2}, with
// Missing for uncalled genotypes. Stored row-major; a Matrix is never mutated
// by the algorithms in this module, they return new matrices instead.
type Matrix struct {
	rows, cols int
	data       []int8
}

// NewMatrix copies rows into a Matrix, checking that every row has the same
// width and every value is a valid dosage.
func NewMatrix(rows [][]int8) (*Matrix, error) {
	if len(rows) == 0 {
		return &Matrix{}, nil
	}
	cols := len(rows[0])
	m := &Matrix{rows: len(rows), cols: cols, data: make([]int8, len(rows)*cols)}
	for i, r := range rows {
		if len(r) != cols {
			return nil, &MalformedInputError{Line: i + 1, Reason: fmt.Sprintf("expected %d sites, found %d", cols, len(r))}
		}
		for j, v := range r {
			if !ValidDosage(v) {
				return nil, &MalformedInputError{Line: i + 1, Reason: fmt.Sprintf("invalid genotype %d at site %d", v, j)}
			}
		}
		copy(m.data[i*cols:], r)
	}
	return m, nil
}

// MustMatrix is NewMatrix for literals in tests and examples.
func MustMatrix(rows [][]int8) *Matrix {
	m, err := NewMatrix(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// Zeros returns an all-zero r x c matrix.
func Zeros(r, c int) *Matrix {
	return &Matrix{rows: r, cols: c, data: make([]int8, r*c)}
}

// ValidDosage reports whether v is a dosage or Missing.
func ValidDosage(v int8) bool {
	return v >= Missing && v <= 2
}

func (m *Matrix) Dims() (int, int) {
	return m.rows, m.cols
}

func (m *Matrix) NumSamples() int {
	return m.rows
}

func (m *Matrix) NumSites() int {
	return m.cols
}

func (m *Matrix) At(i, j int) int8 {
	return m.data[i*m.cols+j]
}

// Set is only meant for matrices under construction by their owner.
func (m *Matrix) Set(i, j int, v int8) {
	m.data[i*m.cols+j] = v
}

// Row returns a view of row i. Callers must not modify it.
func (m *Matrix) Row(i int) []int8 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// T returns the sites x samples transpose.
func (m *Matrix) T() *Matrix {
	t := Zeros(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.data[j*m.rows+i] = m.data[i*m.cols+j]
		}
	}
	return t
}

func (m *Matrix) Clone() *Matrix {
	c := &Matrix{rows: m.rows, cols: m.cols, data: make([]int8, len(m.data))}
	copy(c.data, m.data)
	return c
}

func (m *Matrix) IsMissing(i, j int) bool {
	return m.At(i, j) < 0
}

// KnownCount is the number of called genotypes.
func (m *Matrix) KnownCount() int {
	n := 0
	for _, v := range m.data {
		if v >= 0 {
			n++
		}
	}
	return n
}

// MissingCount is the number of uncalled genotypes.
func (m *Matrix) MissingCount() int {
	return len(m.data) - m.KnownCount()
}

// Rows copies the matrix out as a slice of rows.
func (m *Matrix) Rows() [][]int8 {
	out := make([][]int8, m.rows)
	for i := range out {
		out[i] = append([]int8(nil), m.Row(i)...)
	}
	return out
}

// Equal reports whether both matrices have the same shape and values.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}
