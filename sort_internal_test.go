package forkjoin

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))

	for _, limit := range []int{2, 10, 1 << 20} {
		for range 50 {
			n := 3 + r.IntN(4000)
			items := make([]int, n)
			for i := range items {
				items[i] = r.IntN(limit)
			}
			want := slices.Clone(items)
			slices.Sort(want)

			lo, hi := partition(items, 0, n-1, cmp.Compare[int])
			require.Less(t, lo, hi)
			require.GreaterOrEqual(t, lo, -1)
			require.LessOrEqual(t, hi, n)
			require.Less(t, lo, n-1)
			require.Greater(t, hi, 0)

			if lo >= 0 && hi < n {
				require.LessOrEqual(t, slices.Max(items[:lo+1]), slices.Min(items[hi:]))
			}
			for i := lo + 1; i < hi; i++ {
				if lo >= 0 {
					require.GreaterOrEqual(t, items[i], slices.Max(items[:lo+1]))
				}
				if hi < n {
					require.LessOrEqual(t, items[i], slices.Min(items[hi:]))
				}
			}

			got := slices.Clone(items)
			slices.Sort(got)
			require.Equal(t, want, got)
		}
	}
}

func TestCompareOrdered(t *testing.T) {
	require.Equal(t, -1, compareOrdered(1, 2))
	require.Equal(t, 1, compareOrdered("b", "a"))
	require.Equal(t, 0, compareOrdered(3.5, 3.5))
}
