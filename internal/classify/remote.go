package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"

	"github.com/erazemk/omara/internal/imaging"
	"github.com/erazemk/omara/internal/upstream"
)

// RemoteClassifier posts the image to an HTTP vision service that answers
// with {"label": "...", "confidence": 0.93}.
type RemoteClassifier struct {
	url    string
	client *upstream.Client
}

// NewRemoteClassifier returns a classifier calling url through client.
func NewRemoteClassifier(url string, client *upstream.Client) *RemoteClassifier {
	return &RemoteClassifier{url: url, client: client}
}

// Predict uploads img as a JPEG and returns the service's prediction.
func (c *RemoteClassifier) Predict(ctx context.Context, img image.Image) (Prediction, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "item.jpg")
	if err != nil {
		return Prediction{}, err
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: imaging.JPEGQuality}); err != nil {
		return Prediction{}, err
	}
	if err := w.Close(); err != nil {
		return Prediction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return Prediction{}, c.client.Errorf("building request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	data, err := c.client.Do(req)
	if err != nil {
		return Prediction{}, err
	}

	var pred Prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return Prediction{}, c.client.Errorf("decoding prediction: %v", err)
	}
	if pred.Label == "" {
		return Prediction{}, c.client.Errorf("prediction has no label")
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		return Prediction{}, c.client.Errorf("confidence %v out of range", pred.Confidence)
	}
	return pred, nil
}
