package classify

import (
	"context"
	"image"
)

// HeuristicConfidence is reported for every heuristic label.
const HeuristicConfidence = 0.5

// HeuristicClassifier guesses a garment type from the photo's aspect ratio.
// It is used when no remote classifier is configured.
type HeuristicClassifier struct{}

// aspectLabels maps a minimum width/height ratio to a label, widest first.
var aspectLabels = []struct {
	minRatio float64
	label    string
}{
	{1.8, "Hat"},
	{1.3, "Shoe"},
	{1.05, "Bag"},
	{0.9, "T-shirt"},
	{0.7, "Shirt"},
	{0.5, "Coat"},
	{0.4, "Jeans"},
	{0, "Dress"},
}

// Predict labels img by its aspect ratio with a fixed low confidence.
func (HeuristicClassifier) Predict(_ context.Context, img image.Image) (Prediction, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Prediction{Label: "T-shirt", Confidence: HeuristicConfidence}, nil
	}
	ratio := float64(b.Dx()) / float64(b.Dy())
	for _, al := range aspectLabels {
		if ratio >= al.minRatio {
			return Prediction{Label: al.label, Confidence: HeuristicConfidence}, nil
		}
	}
	return Prediction{Label: "Dress", Confidence: HeuristicConfidence}, nil
}
