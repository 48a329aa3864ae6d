package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"imgclass/pkg/types"
)

const (
	endpointUploadRetrain = "upload_retrain_data"
	endpointRetrain       = "retrain"
	endpointRetrainStatus = "retrain_status"
)

// UploadRetrainArchive sends a zip archive as multipart field "zip_file" to
// the configured retrain data endpoint. It never starts a retraining job.
func (c *Client) UploadRetrainArchive(ctx context.Context, filename string, archive []byte) (types.UploadResponse, error) {
	var out types.UploadResponse
	body, ct, err := multipartBody("zip_file", filename, archive)
	if err != nil {
		return out, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(c.retrainDataPath), body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", ct)
	_, err = c.doJSON(req, endpointUploadRetrain, &out)
	return out, err
}

// StartRetrain issues POST /retrain with no body.
func (c *Client) StartRetrain(ctx context.Context) (types.RetrainStartResponse, error) {
	var out types.RetrainStartResponse
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL("/retrain"), nil)
	if err != nil {
		return out, err
	}
	_, err = c.doJSON(req, endpointRetrain, &out)
	return out, err
}

// RetrainStatus reads GET /retrain_status/{id}. A non-2xx status is a
// StatusError: the job state cannot be learned from such a reply.
func (c *Client) RetrainStatus(ctx context.Context, id string) (types.RetrainStatusResponse, error) {
	var out types.RetrainStatusResponse
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL("/retrain_status/"+url.PathEscape(id)), nil)
	if err != nil {
		return out, err
	}
	code, err := c.doJSON(req, endpointRetrainStatus, &out)
	if err != nil {
		return out, err
	}
	if code < 200 || code > 299 {
		return out, &StatusError{Endpoint: endpointRetrainStatus, Status: code}
	}
	return out, nil
}
