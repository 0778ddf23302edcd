package mask

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhcho/ldknni/geno"
	"github.com/hhcho/ldknni/impute"
	"github.com/hhcho/ldknni/ld"
)

var example = geno.MustMatrix([][]int8{
	{0, 1, 2, -1, 0},
	{0, 1, 2, 0, 0},
	{0, 1, 2, 1, 0},
	{2, 1, 0, 2, 2},
})

func randomMatrix(seed int64, samples, sites int, missing float64) *geno.Matrix {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]int8, samples)
	for i := range rows {
		rows[i] = make([]int8, sites)
		for j := range rows[i] {
			if rng.Float64() < missing {
				rows[i][j] = geno.Missing
			} else {
				rows[i][j] = int8(rng.Intn(3))
			}
		}
	}
	return geno.MustMatrix(rows)
}

func TestBuildInvariant(t *testing.T) {
	m := randomMatrix(1, 20, 30, 0.2)
	mk, err := Build(m, 50, NewRandom(7))
	require.NoError(t, err)
	assert.Equal(t, 50, mk.Count())

	cells := mk.List()
	require.Len(t, cells, 50)
	seen := make(map[[2]int]bool)
	for _, c := range cells {
		assert.False(t, m.IsMissing(c[0], c[1]))
		assert.False(t, seen[c])
		seen[c] = true
	}

	again, err := Build(m, 50, NewRandom(7))
	require.NoError(t, err)
	assert.Equal(t, cells, again.List())
}

func TestBuildExample(t *testing.T) {
	mk, err := Build(example, 1, NewRandom(0))
	require.NoError(t, err)
	cells := mk.List()
	require.Len(t, cells, 1)
	assert.False(t, example.IsMissing(cells[0][0], cells[0][1]))

	all, err := Build(example, 19, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.Equal(t, 19, all.Count())

	_, err = Build(example, 20, NewRandom(0))
	assert.Error(t, err)
}

func TestRandomDeterministic(t *testing.T) {
	a, b, c := NewRandom(42), NewRandom(42), NewRandom(43)
	same := true
	for i := 0; i < 50; i++ {
		x := a.Intn(1000)
		assert.Equal(t, x, b.Intn(1000))
		if x != c.Intn(1000) {
			same = false
		}
		assert.Less(t, x, 1000)
	}
	assert.False(t, same)
}

func TestDefaultCount(t *testing.T) {
	assert.Equal(t, 0, DefaultCount(example))
	assert.Equal(t, 3, DefaultCount(geno.Zeros(10, 30)))
}

func TestSaveLoad(t *testing.T) {
	mk, err := Build(example, 5, NewRandom(3))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, mk.Save(&buf))
	assert.Equal(t, 4, strings.Count(buf.String(), "\n"))

	back, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, mk.List(), back.List())
	assert.Equal(t, 5, back.Count())
}

func TestLoadOtherCharsUnmasked(t *testing.T) {
	mk, err := Load(strings.NewReader("01x\n.1 \n"))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {1, 1}}, mk.List())

	_, err = Load(strings.NewReader("011\n01\n"))
	assert.ErrorIs(t, err, geno.ErrMalformedInput)
}

func TestCheckRejectsMaskedMissing(t *testing.T) {
	// (0, 3) is missing in example
	mk, err := Load(strings.NewReader("00010\n10000\n00000\n00000\n"))
	require.NoError(t, err)

	err = mk.Check(example)
	var mie *geno.MalformedInputError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, 1, mie.Line)

	_, err = mk.Apply(example)
	assert.ErrorIs(t, err, geno.ErrMalformedInput)
	_, err = Accuracy(example, example, mk)
	assert.ErrorIs(t, err, geno.ErrMalformedInput)
	_, err = FastAccuracy(context.Background(), example, mk, impute.NewMode(impute.Options{}), 2)
	assert.ErrorIs(t, err, geno.ErrMalformedInput)

	ok, err := Load(strings.NewReader("00000\n10000\n00000\n00000\n"))
	require.NoError(t, err)
	require.NoError(t, ok.Check(example))
	acc, err := FastAccuracy(context.Background(), example, ok, impute.NewMode(impute.Options{}), 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestApplyAndAccuracy(t *testing.T) {
	mk := New(4, 5)
	mk.set(1, 3)
	mk.set(3, 0)

	view, err := mk.Apply(example)
	require.NoError(t, err)
	assert.True(t, view.IsMissing(1, 3))
	assert.True(t, view.IsMissing(3, 0))
	assert.Equal(t, example.MissingCount()+2, view.MissingCount())

	imputed := example.Clone()
	imputed.Set(3, 0, 0)
	acc, err := Accuracy(example, imputed, mk)
	require.NoError(t, err)
	assert.Equal(t, 0.5, acc)

	_, err = Accuracy(example, imputed, New(4, 5))
	assert.ErrorIs(t, err, ErrEmptyMask)

	_, err = mk.Apply(geno.Zeros(2, 2))
	assert.ErrorIs(t, err, geno.ErrMalformedInput)
}

func TestFastAccuracyMatchesFull(t *testing.T) {
	m := randomMatrix(5, 40, 15, 0.05)
	sim, err := ld.TopN(context.Background(), m, 10, ld.Options{})
	require.NoError(t, err)

	mk, err := Build(m, 30, NewRandom(11))
	require.NoError(t, err)
	view, err := mk.Apply(m)
	require.NoError(t, err)

	for name, imp := range map[string]impute.CellImputer{
		"ldknn": impute.NewLDKnn(sim, 5, 8, impute.DefaultLDOptions()),
		"knn":   impute.NewKnn(5, impute.Options{}),
		"mode":  impute.NewMode(impute.Options{}),
	} {
		t.Run(name, func(t *testing.T) {
			imputed, err := imp.Impute(context.Background(), view)
			require.NoError(t, err)
			full, err := Accuracy(m, imputed, mk)
			require.NoError(t, err)

			for _, threads := range []int{1, 3, 64} {
				fast, err := FastAccuracy(context.Background(), m, mk, imp, threads)
				require.NoError(t, err)
				assert.Equal(t, full, fast)
			}
		})
	}
}
