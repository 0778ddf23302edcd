package ld

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhcho/ldknni/geno"
)

func TestStoredRoundTrip(t *testing.T) {
	sim := NewStored([][]int{{2, 1}, {0}, {0, 1}, {}})

	var buf bytes.Buffer
	_, err := sim.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "0\t2\t1\n1\t0\n2\t0\t1\n3\n", buf.String())

	back, err := ReadStored(&buf, 4)
	require.NoError(t, err)
	assert.Equal(t, sim, back)
}

func TestReadStoredAnyOrder(t *testing.T) {
	back, err := ReadStored(strings.NewReader("2\t0\n\n0\t2\t1\n"), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, back.Similar(0))
	assert.Equal(t, []int{}, back.Similar(1))
	assert.Equal(t, []int{0}, back.Similar(2))
	assert.Nil(t, back.Similar(3))
}

func TestReadStoredMalformed(t *testing.T) {
	for name, in := range map[string]string{
		"not a number": "0\tx\n",
		"out of range": "0\t5\n",
		"negative":     "-1\t0\n",
		"twice":        "0\t1\n0\t2\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadStored(strings.NewReader(in), 3)
			assert.ErrorIs(t, err, geno.ErrMalformedInput)
		})
	}
}

func TestStoredTruncate(t *testing.T) {
	sim := NewStored([][]int{{2, 1}, {0}, {0, 1}})
	assert.Equal(t, NewStored([][]int{{2}, {0}, {0}}), sim.Truncate(1))
	assert.Equal(t, sim, sim.Truncate(5))
}

func TestCalculatedMatchesTopN(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	m := geno.MustMatrix(randomSites(rng, 12, 10, 0.1))

	stored, err := TopN(context.Background(), m, 3, Options{Method: Hamming})
	require.NoError(t, err)

	calc, err := NewCalculated(m, 3, Hamming, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, calc.Len())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := 0; p < 10; p++ {
				assert.Equal(t, stored.Similar(p), calc.Similar(p))
			}
		}()
	}
	wg.Wait()
	assert.Nil(t, calc.Similar(10))

	pre, err := calc.Precompute(context.Background(), Options{Threads: 2})
	require.NoError(t, err)
	assert.Equal(t, stored, pre)
}
