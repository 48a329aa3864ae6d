package types

// PredictLibRequest is the JSON body of POST /predict_lib.
type PredictLibRequest struct {
	// Identifier of an image held in the server-side library.
	// example: 12
	ImageID string `json:"image_id" example:"12"`
}

// PredictionResponse is returned by POST /predict_upload and POST /predict_lib.
// Exactly one of Prediction or Error is expected to be set.
type PredictionResponse struct {
	// Predicted class label.
	// example: cat
	Prediction string `json:"prediction,omitempty" example:"cat"`
	// Server-reported reason the prediction could not be made.
	// example: bad image
	Error string `json:"error,omitempty" example:"bad image"`
}

// UploadResponse is returned by the retrain archive upload endpoints.
// /upload_retrain_data fills Message; the older /upload_retrain_images
// revision returns RetrainID instead.
type UploadResponse struct {
	// example: Uploaded 42 images.
	Message string `json:"message,omitempty" example:"Uploaded 42 images."`
	// example: 3f2c9a10
	RetrainID string `json:"retrain_id,omitempty" example:"3f2c9a10"`
}

// RetrainStartResponse is returned by POST /retrain.
type RetrainStartResponse struct {
	// Job identifier used for status polling. Empty when the job was not created.
	// example: 3f2c9a10
	RetrainID string `json:"retrain_id,omitempty" example:"3f2c9a10"`
	// Failure explanation when no job was created.
	// example: Retraining failed
	Message string `json:"message,omitempty" example:"Retraining failed"`
}

// RetrainMetrics carries the server-formatted results table.
type RetrainMetrics struct {
	// Preformatted text, rendered verbatim.
	// example: accuracy  0.91
	MetricsTable string `json:"metrics_table" example:"accuracy  0.91"`
}

// Retrain job statuses reported by GET /retrain_status/{id}. Any other value
// means the job is still in progress.
const (
	RetrainStatusRunning   = "running"
	RetrainStatusCompleted = "completed"
	RetrainStatusFailed    = "failed"
)

// RetrainStatusResponse is returned by GET /retrain_status/{retrain_id}.
type RetrainStatusResponse struct {
	// example: running
	Status string `json:"status" example:"running"`
	// Percent complete, 0..100.
	// example: 40
	Progress float64 `json:"progress" example:"40"`
	// example: Retraining successful
	Message string `json:"message,omitempty" example:"Retraining successful"`
	// Present once the job reaches a terminal status.
	Metrics *RetrainMetrics `json:"metrics,omitempty"`
}

// Terminal reports whether the status ends the job.
func (r RetrainStatusResponse) Terminal() bool {
	return r.Status == RetrainStatusCompleted || r.Status == RetrainStatusFailed
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: image not found
	Error string `json:"error" example:"image not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
