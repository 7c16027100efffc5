package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/erazemk/omara/internal/model"
)

// Thresholds on the OpenCV 8-bit HSV scale (H 0..179, S and V 0..255).
const (
	lowSaturation   = 40
	whiteValue      = 200
	blackValue      = 80
	colorfulValue   = 50
	neutralFraction = 0.35
	hueBins         = 18
)

// DominantColor names the dominant color of the central 60% of img.
func DominantColor(img image.Image) string {
	roi := centerROI(img)
	if roi.Bounds().Empty() {
		return model.ColorUnknown
	}
	b := roi.Bounds()
	total := b.Dx() * b.Dy()

	var white, black, gray, colorful int
	var sumV float64
	var hist [hueBins]int

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := roi.PixOffset(x, y)
			h, s, v := hsv(roi.Pix[i], roi.Pix[i+1], roi.Pix[i+2])
			sumV += v

			if s < lowSaturation {
				switch {
				case v > whiteValue:
					white++
				case v < blackValue:
					black++
				default:
					gray++
				}
			}
			if s >= lowSaturation && v > colorfulValue {
				colorful++
				hist[min(int(math.Round(h))/10, hueBins-1)]++
			}
		}
	}

	frac := func(n int) float64 { return float64(n) / float64(total) }
	switch {
	case frac(white) > neutralFraction:
		return model.ColorWhite
	case frac(black) > neutralFraction:
		return model.ColorBlack
	case frac(gray) > neutralFraction:
		return model.ColorGray
	}

	if colorful == 0 {
		mean := sumV / float64(total)
		switch {
		case mean > 180:
			return model.ColorWhite
		case mean < blackValue:
			return model.ColorBlack
		default:
			return model.ColorGray
		}
	}

	best := 0
	for i, n := range hist {
		if n > hist[best] {
			best = i
		}
	}
	return hueName(float64(best*10 + 5))
}

// centerROI crops img to the region between 20% and 80% of each dimension.
func centerROI(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rect := image.Rect(
		b.Min.X+int(float64(w)*0.2), b.Min.Y+int(float64(h)*0.2),
		b.Min.X+int(float64(w)*0.8), b.Min.Y+int(float64(h)*0.8),
	)
	if rect.Empty() {
		return &image.NRGBA{}
	}
	return imaging.Crop(img, rect)
}

// hsv converts 8-bit RGB to OpenCV-scaled HSV.
func hsv(r8, g8, b8 uint8) (h, s, v float64) {
	r, g, b := float64(r8), float64(g8), float64(b8)
	hi := max(r, g, b)
	lo := min(r, g, b)
	v = hi
	if hi == 0 {
		return 0, 0, 0
	}
	d := hi - lo
	s = 255 * d / hi
	if d == 0 {
		return 0, s, v
	}

	switch hi {
	case r:
		h = 60 * (g - b) / d
	case g:
		h = 120 + 60*(b-r)/d
	default:
		h = 240 + 60*(r-g)/d
	}
	if h < 0 {
		h += 360
	}
	return h / 2, s, v
}

func hueName(h float64) string {
	switch {
	case h < 10 || h >= 170:
		return model.ColorRed
	case h < 25:
		return model.ColorOrange
	case h < 35:
		return model.ColorYellow
	case h < 85:
		return model.ColorGreen
	case h < 100:
		return model.ColorCyan
	case h < 130:
		return model.ColorBlue
	case h < 160:
		return model.ColorPurple
	default:
		return model.ColorPink
	}
}
