// Package classify turns a photo into item metadata: a label from a
// Classifier plus color, material and condition heuristics.
package classify

import (
	"context"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/imaging"
	"github.com/erazemk/omara/internal/model"
)

// Prediction is a classifier's answer for one image.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels an image.
type Classifier interface {
	Predict(ctx context.Context, img image.Image) (Prediction, error)
}

// Metadata is everything derived from one image.
type Metadata struct {
	Label      string
	Color      string
	Material   string
	Confidence float64
	Condition  string
}

// Fields returns the metadata as item fields.
func (m Metadata) Fields() model.Fields {
	return model.Fields{
		"type":       m.Label,
		"color":      m.Color,
		"material":   m.Material,
		"confidence": m.Confidence,
		"condition":  m.Condition,
	}
}

// Adapter combines a Classifier with the pixel heuristics.
type Adapter struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewAdapter returns an adapter that labels images with c.
func NewAdapter(c Classifier, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{classifier: c, logger: logger}
}

// ClassifyFile decodes the image at path and classifies it.
func (a *Adapter) ClassifyFile(ctx context.Context, path string) (Metadata, error) {
	img, err := imaging.Load(path)
	if err != nil {
		return Metadata{}, err
	}
	return a.Classify(ctx, img)
}

// Classify derives item metadata from img.
func (a *Adapter) Classify(ctx context.Context, img image.Image) (Metadata, error) {
	pred, err := a.classifier.Predict(ctx, img)
	if err != nil {
		return Metadata{}, fmt.Errorf("predicting label: %w", err)
	}

	meta := Metadata{
		Label:      pred.Label,
		Color:      imaging.DominantColor(img),
		Material:   GuessMaterial(pred.Label),
		Confidence: pred.Confidence,
	}

	condition, ok := imaging.AssessCondition(img)
	if !ok {
		condition = ConditionFromConfidence(pred.Confidence)
	}
	meta.Condition = condition

	a.logger.Debug("classified image",
		zap.String("label", meta.Label),
		zap.Float64("confidence", meta.Confidence),
		zap.String("color", meta.Color),
		zap.String("material", meta.Material),
		zap.String("condition", meta.Condition),
	)
	return meta, nil
}

// materialRules are checked in order; the first rule with a matching
// keyword wins.
var materialRules = []struct {
	keywords []string
	material string
}{
	{[]string{"shirt", "t-shirt", "top", "pullover"}, model.MaterialCotton},
	{[]string{"jean"}, model.MaterialDenim},
	{[]string{"coat", "jacket"}, model.MaterialWool},
	{[]string{"dress", "gown"}, model.MaterialSilk},
	{[]string{"sneaker", "shoe", "boot", "sandal"}, model.MaterialLeather},
	{[]string{"bag", "backpack", "purse", "tote"}, model.MaterialLeather},
}

// GuessMaterial maps a label to a material by case-insensitive keyword match.
func GuessMaterial(label string) string {
	l := strings.ToLower(label)
	for _, rule := range materialRules {
		for _, kw := range rule.keywords {
			if strings.Contains(l, kw) {
				return rule.material
			}
		}
	}
	return model.MaterialPolyester
}

// ConditionFromConfidence grades an item when its photo is too small to
// measure sharpness.
func ConditionFromConfidence(confidence float64) string {
	switch {
	case confidence > 0.8:
		return model.ConditionGood
	case confidence > 0.5:
		return model.ConditionAverage
	default:
		return model.ConditionPoor
	}
}
