package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"imgclass/pkg/types"
)

const (
	endpointPredictUpload = "predict_upload"
	endpointPredictLib    = "predict_lib"
)

// PredictUpload sends image bytes as multipart field "image" to POST /predict_upload.
func (c *Client) PredictUpload(ctx context.Context, filename string, image []byte) (types.PredictionResponse, error) {
	var out types.PredictionResponse
	body, ct, err := multipartBody("image", filename, image)
	if err != nil {
		return out, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL("/predict_upload"), body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", ct)
	_, err = c.doJSON(req, endpointPredictUpload, &out)
	return out, err
}

// PredictLibrary sends {"image_id": id} to POST /predict_lib.
func (c *Client) PredictLibrary(ctx context.Context, id string) (types.PredictionResponse, error) {
	var out types.PredictionResponse
	payload, err := json.Marshal(types.PredictLibRequest{ImageID: id})
	if err != nil {
		return out, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL("/predict_lib"), bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.doJSON(req, endpointPredictLib, &out)
	return out, err
}
