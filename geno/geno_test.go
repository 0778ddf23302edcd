package geno

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var example = [][]int8{
	{0, 1, 2, -1, 0},
	{0, 1, 2, 0, 0},
	{0, 1, 2, 1, 0},
	{2, 1, 0, 2, 2},
}

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix(example)
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, int8(-1), m.At(0, 3))
	assert.True(t, m.IsMissing(0, 3))
	assert.Equal(t, 19, m.KnownCount())
	assert.Equal(t, 1, m.MissingCount())
	assert.Equal(t, example, m.Rows())
}

func TestNewMatrixRejectsBadInput(t *testing.T) {
	_, err := NewMatrix([][]int8{{0, 1}, {0}})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = NewMatrix([][]int8{{0, 3}})
	var mie *MalformedInputError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, 1, mie.Line)
}

func TestTransposeAndClone(t *testing.T) {
	m := MustMatrix(example)
	tr := m.T()
	r, c := tr.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 4, c)
	for i := 0; i < 4; i++ {
		for j := 0; j < 5; j++ {
			assert.Equal(t, m.At(i, j), tr.At(j, i))
		}
	}

	cl := m.Clone()
	cl.Set(0, 0, 2)
	assert.Equal(t, int8(0), m.At(0, 0))
	assert.False(t, cl.Equal(m))
	assert.True(t, m.T().T().Equal(m))
}

func TestArrayRoundTrip(t *testing.T) {
	in := "0 1 2 -1 0\n0\t1 2 0 0\n\n0 1 2 1 0\n2 1 0 2 2\n"
	m, err := ReadArray(strings.NewReader(in))
	require.NoError(t, err)
	assert.True(t, m.Equal(MustMatrix(example)))

	var buf bytes.Buffer
	require.NoError(t, WriteArray(&buf, m))
	back, err := ReadArray(&buf)
	require.NoError(t, err)
	assert.True(t, back.Equal(m))
}

func TestArrayMalformed(t *testing.T) {
	_, err := ReadArray(strings.NewReader("0 1 2\n0 1\n"))
	var mie *MalformedInputError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, 2, mie.Line)

	_, err = ReadArray(strings.NewReader("0 1 x\n"))
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = ReadArray(strings.NewReader("0 1 5\n"))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

const rawFile = `FID IID PAT MAT SEX PHENOTYPE rs1_A rs2_C rs3_G
s1 s1 0 0 1 -9 0 1 NA
s2 s2 0 0 2 -9 2 NA 1
`

func TestPlinkRawRoundTrip(t *testing.T) {
	pr, err := ReadPlinkRaw(strings.NewReader(rawFile))
	require.NoError(t, err)

	assert.Equal(t, []string{"rs1_A", "rs2_C", "rs3_G"}, pr.Snps)
	assert.Equal(t, []string{"s1", "s2"}, pr.Samples)
	assert.Equal(t, [][]int8{{0, 1, -1}, {2, -1, 1}}, pr.Geno.Rows())

	var buf bytes.Buffer
	require.NoError(t, pr.Write(&buf, pr.Geno))
	assert.Equal(t, rawFile, buf.String())

	imputed := MustMatrix([][]int8{{0, 1, 1}, {2, 0, 1}})
	buf.Reset()
	require.NoError(t, pr.Write(&buf, imputed))
	assert.Contains(t, buf.String(), "s2 s2 0 0 2 -9 2 0 1\n")

	assert.Error(t, pr.Write(&buf, MustMatrix([][]int8{{0}})))
}

func TestPlinkRawMalformed(t *testing.T) {
	cases := map[string]string{
		"short header":    "FID IID PAT\n",
		"repeated snp":    "FID IID PAT MAT SEX PHENOTYPE a a\n",
		"wrong width":     "FID IID PAT MAT SEX PHENOTYPE a b\ns1 s1 0 0 1 -9 0\n",
		"bad genotype":    "FID IID PAT MAT SEX PHENOTYPE a\ns1 s1 0 0 1 -9 3\n",
		"minus one token": "FID IID PAT MAT SEX PHENOTYPE a\ns1 s1 0 0 1 -9 -1\n",
		"repeated sample": "FID IID PAT MAT SEX PHENOTYPE a\ns1 s1 0 0 1 -9 0\ns1 s1 0 0 1 -9 0\n",
		"empty":           "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPlinkRaw(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestGenoFileStream(t *testing.T) {
	m := MustMatrix(example)
	filename := filepath.Join(t.TempDir(), "geno.bin")
	require.NoError(t, WriteFileAtomic(filename, func(w io.Writer) error {
		return WriteGenoBinary(w, m)
	}))

	gfs, err := NewGenoFileStream(filename, 0, 5)
	require.NoError(t, err)

	row, err := gfs.NextRow()
	require.NoError(t, err)
	assert.Equal(t, example[0], row)

	back, err := gfs.ToMatrix()
	require.NoError(t, err)
	assert.True(t, back.Equal(m))
	assert.Nil(t, gfs.file)

	_, err = NewGenoFileStream(filename, 0, 3)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestGenoFileStreamClosesOnError(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "geno.bin")
	require.NoError(t, os.WriteFile(filename, []byte{0, 1, 2, 7, 0, 1}, 0644))

	gfs, err := NewGenoFileStream(filename, 0, 3)
	require.NoError(t, err)
	_, err = gfs.ToMatrix()
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Nil(t, gfs.file)

	short := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(short, []byte{0, 1, 2, 0, 1, 2, 1}, 0644))
	gfs, err = NewGenoFileStream(short, 3, 3)
	require.NoError(t, err)
	_, err = gfs.ToMatrix()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Nil(t, gfs.file)
}

func TestWriteFileAtomicLeavesNothingOnError(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "out.txt")
	err := WriteFileAtomic(filename, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(filename, []byte(`
method = "knn"
neighbours = 7
input_format = "array"
num_threads = 3
`), 0644))

	config, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, "knn", config.Method)
	assert.Equal(t, 7, config.Neighbours)
	assert.Equal(t, 20, config.Snps)
	assert.Equal(t, 3, config.LocalNumThreads)
	assert.Equal(t, 1.0, config.DistanceConstant)

	require.NoError(t, os.WriteFile(filename, []byte(`method = "magic"`), 0644))
	_, err = LoadConfig(filename)
	assert.Error(t, err)

	config, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestInitParams(t *testing.T) {
	m := MustMatrix(example)

	config := DefaultConfig()
	params := InitParams(config, m)
	assert.Equal(t, 5, params.K)
	assert.Equal(t, 4, params.LdNum)
	assert.Equal(t, []int{20, 20}, params.StartMax)
	assert.Equal(t, []int{3, 4}, params.AbsMax)

	config.Method = "knn"
	params = InitParams(config, m)
	assert.Equal(t, []int{3}, params.AbsMax)
	assert.Equal(t, 4, params.NumSamples())
	assert.Equal(t, 5, params.NumSites())
}
