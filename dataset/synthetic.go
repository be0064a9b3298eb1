package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// MakePricing generates a reproducible categorical pricing dataset with n rows.
// Columns: brand, size, region, channel. The target is a positive price built
// from additive per-category effects plus Gaussian noise, so every regression
// metric (including MSLE) is defined on it.
func MakePricing(n int, seed uint64) (*Frame, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	brands := []string{"acme", "globex", "initech", "umbrella"}
	brandEffect := []float64{0, 15, 30, 45}
	sizes := []string{"S", "M", "L"}
	sizeEffect := []float64{0, 10, 25}
	regions := []string{"north", "south", "west"}
	regionEffect := []float64{5, 0, -5}
	channels := []string{"online", "retail"}
	channelEffect := []float64{0, 8}

	rows := make([][]string, n)
	y := make([]float64, n)
	for i := range rows {
		b, s, r, c := rng.IntN(len(brands)), rng.IntN(len(sizes)), rng.IntN(len(regions)), rng.IntN(len(channels))
		rows[i] = []string{brands[b], sizes[s], regions[r], channels[c]}
		y[i] = 50 + brandEffect[b] + sizeEffect[s] + regionEffect[r] + channelEffect[c] + rng.NormFloat64()*2
	}

	frame, err := NewFrame([]string{"brand", "size", "region", "channel"}, rows)
	if err != nil {
		// 固定の列定義なので到達しない
		panic(err)
	}
	return frame, mat.NewVecDense(n, y)
}
