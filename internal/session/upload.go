package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"imgclass/pkg/types"
)

var (
	// ErrNoArchive is returned when an archive upload is requested without a file.
	ErrNoArchive = errors.New("no archive selected")
	// ErrUploadFailed wraps every failed archive upload.
	ErrUploadFailed = errors.New("archive upload failed")
)

// ArchiveUploader sends retraining archives.
type ArchiveUploader interface {
	UploadRetrainArchive(ctx context.Context, filename string, archive []byte) (types.UploadResponse, error)
}

// RetrainDataUploader sends new training images to the server. It never
// starts a retraining job itself.
type RetrainDataUploader struct {
	api    ArchiveUploader
	view   View
	events EventPublisher
	log    zerolog.Logger
}

// UploadRetrainArchive uploads file and alerts the server's confirmation
// followed by the retrain instruction. The rendered text is returned.
func (u *RetrainDataUploader) UploadRetrainArchive(ctx context.Context, file *Upload) (string, error) {
	if file == nil {
		u.view.Alert(MsgSelectArchive)
		return MsgSelectArchive, ErrNoArchive
	}
	res, err := u.api.UploadRetrainArchive(ctx, file.Name, file.Data)
	if err != nil {
		u.log.Error().Str("filename", file.Name).Err(err).Msg("archive upload failed")
		u.view.Alert(MsgUploadFailed)
		return MsgUploadFailed, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if res.Message == "" {
		if res.RetrainID != "" {
			u.log.Warn().Str("retrain_id", res.RetrainID).Msg("server answered the upload with a retrain id; it is not monitored")
		}
		u.view.Alert(MsgUploadFailed)
		return MsgUploadFailed, fmt.Errorf("%w: response has no message", ErrUploadFailed)
	}
	text := res.Message + " " + MsgTriggerRetrain
	u.view.Alert(text)
	u.events.Publish(Event{Name: EventArchiveUploaded, Fields: map[string]any{"filename": file.Name, "bytes": len(file.Data)}})
	return text, nil
}
