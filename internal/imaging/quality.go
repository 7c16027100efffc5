package imaging

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/erazemk/omara/internal/model"
)

// Laplacian variance cut-offs between sharp, softer and blurry photos.
const (
	sharpVariance = 100
	softVariance  = 30
)

// LaplacianVariance returns the variance of the 4-neighbour Laplacian over
// the interior of the grayscale image. ok is false when the image has no
// interior pixel.
func LaplacianVariance(img image.Image) (variance float64, ok bool) {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0, false
	}

	at := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x*4])
	}

	var sum, sumSq float64
	n := float64((w - 2) * (h - 2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			l := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += l
			sumSq += l * l
		}
	}
	mean := sum / n
	return sumSq/n - mean*mean, true
}

// AssessCondition grades the photographed item by image sharpness.
// ok is false when the image is too small to measure.
func AssessCondition(img image.Image) (condition string, ok bool) {
	v, ok := LaplacianVariance(img)
	if !ok {
		return "", false
	}
	switch {
	case v > sharpVariance:
		return model.ConditionNew, true
	case v > softVariance:
		return model.ConditionWorn, true
	default:
		return model.ConditionDamaged, true
	}
}
