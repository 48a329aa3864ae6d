package types

// LibraryImage is an image held in the server-side library, addressed by ID.
type LibraryImage struct {
	// Stable identifier used by GET /image/{id} and POST /predict_lib.
	// example: 12
	ID string `json:"id" example:"12"`
	// MIME type of Data.
	// example: image/png
	ContentType string `json:"content_type" example:"image/png"`
	// Raw image bytes.
	Data []byte `json:"-"`
}
