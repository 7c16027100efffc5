package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/omara/internal/model"
)

func checkerboard(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

// stripes alternates between two gray levels every column.
func stripes(w, h int, a, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := a
			if x%2 == 1 {
				g = b
			}
			img.Set(x, y, color.RGBA{g, g, g, 255})
		}
	}
	return img
}

func TestLaplacianVarianceFlatImage(t *testing.T) {
	v, ok := LaplacianVariance(solid(20, 20, color.RGBA{90, 90, 90, 255}))
	require.True(t, ok)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestLaplacianVarianceTooSmall(t *testing.T) {
	_, ok := LaplacianVariance(solid(2, 10, color.White))
	assert.False(t, ok)
}

func TestAssessCondition(t *testing.T) {
	// Alternating columns a,b give a Laplacian of ±2(b-a) and a variance of 4(b-a)².
	tests := map[string]struct {
		img  image.Image
		want string
	}{
		"sharp":  {checkerboard(16, 16), model.ConditionNew},
		"soft":   {stripes(16, 16, 100, 104), model.ConditionWorn},
		"blurry": {solid(16, 16, color.RGBA{100, 100, 100, 255}), model.ConditionDamaged},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := AssessCondition(tc.img)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := AssessCondition(solid(1, 1, color.White))
	assert.False(t, ok)
}
