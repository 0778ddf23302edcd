package ld

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopQueueKeepsHighest(t *testing.T) {
	q := NewTopQueue[int, float64](3, true)
	assert.True(t, q.Add(1, 0.5))
	assert.True(t, q.Add(2, 0.9))
	assert.True(t, q.Add(3, 0.1))
	assert.True(t, q.Add(4, 0.7))
	assert.False(t, q.Add(5, 0.05))

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{2, 4, 1}, q.List())
	assert.Equal(t, []int{2, 4}, q.ListN(2))
}

func TestTopQueueKeepsLowest(t *testing.T) {
	q := NewTopQueue[string, int](2, false)
	q.Add("c", 3)
	q.Add("a", 1)
	q.Add("b", 2)
	assert.Equal(t, []string{"a", "b"}, q.List())
}

func TestTopQueueTiesPreferSmallerKey(t *testing.T) {
	q := NewTopQueue[int, float64](2, true)
	q.Add(7, 1.0)
	q.Add(3, 1.0)
	assert.False(t, q.Add(9, 1.0))
	assert.True(t, q.Add(1, 1.0))
	assert.Equal(t, []int{1, 3}, q.List())
}

func TestTopQueueUpdatesScore(t *testing.T) {
	q := NewTopQueue[int, float64](2, true)
	q.Add(1, 0.1)
	q.Add(2, 0.2)
	q.Add(1, 0.3)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []int{1, 2}, q.List())
}

func TestTopQueueMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		k := 1 + rng.Intn(10)
		n := rng.Intn(40)
		q := NewTopQueue[int, float64](k, true)
		scores := make([]float64, n)
		for i := range scores {
			// coarse values so ties happen
			scores[i] = float64(rng.Intn(5))
			q.Add(i, scores[i])
		}

		want := make([]int, n)
		for i := range want {
			want[i] = i
		}
		sort.SliceStable(want, func(a, b int) bool {
			return scores[want[a]] > scores[want[b]]
		})
		if len(want) > k {
			want = want[:k]
		}
		require.Equal(t, want, q.List(), "trial %d", trial)
	}
}

func TestTopQueueConcurrentAdds(t *testing.T) {
	q := NewTopQueue[int, float64](10, true)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < 1000; i += 8 {
				q.Add(i, float64(i))
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, []int{999, 998, 997, 996, 995, 994, 993, 992, 991, 990}, q.List())
}
