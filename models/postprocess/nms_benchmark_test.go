package postprocess

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-perception/images"
	"github.com/nvr-ai/go-perception/models"
)

// randomCandidates scatters n boxes over a 1920x1080 frame, with clusters of
// near-duplicates like a detector produces around each object.
func randomCandidates(rng *rand.Rand, n int) []Candidate {
	out := make([]Candidate, 0, n)
	for len(out) < n {
		x, y := rng.Intn(1700), rng.Intn(900)
		w, h := 20+rng.Intn(200), 20+rng.Intn(180)
		class := rng.Intn(models.YOLOClasses.Len())
		for k := 0; k < 4 && len(out) < n; k++ {
			out = append(out, Candidate{
				Box:   images.RectFromXYWH(x+rng.Intn(10), y+rng.Intn(10), w, h),
				Score: 0.3 + 0.7*rng.Float32(),
				Class: class,
			})
		}
	}
	return out
}

func BenchmarkSuppressor_Suppress(b *testing.B) {
	s := NewSuppressor(models.YOLOClasses, DefaultClassTable(), DefaultSuppressorOptions())
	rng := rand.New(rand.NewSource(7))

	for _, n := range []int{10, 100, 1000} {
		candidates := randomCandidates(rng, n)
		b.Run(fmt.Sprintf("candidates=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = s.Suppress(candidates)
			}
		})
	}
}
