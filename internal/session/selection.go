package session

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SelectionKind tags the active image source.
type SelectionKind int

const (
	SelectionNone SelectionKind = iota
	SelectionUpload
	SelectionLibrary
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionUpload:
		return "upload"
	case SelectionLibrary:
		return "library"
	default:
		return "none"
	}
}

// Upload is a file chosen by the user.
type Upload struct {
	Name string
	Data []byte
}

// ImageSelection is the current image reference. At most one source is
// active: Blob/Filename for uploads, ID for library images.
type ImageSelection struct {
	Kind     SelectionKind
	Filename string
	Blob     []byte
	ID       string
}

// ImageSource fetches library image bytes.
type ImageSource interface {
	GetImage(ctx context.Context, id string) ([]byte, error)
}

// InputSelector reconciles the upload and library inputs into one
// ImageSelection and keeps the preview in step with it.
type InputSelector struct {
	images        ImageSource
	view          View
	events        EventPublisher
	log           zerolog.Logger
	previewMaxDim int

	mu  sync.Mutex
	sel ImageSelection
	// contents of the two input controls
	uploadControl  string
	libraryControl string
}

// Selection returns a copy of the current selection.
func (s *InputSelector) Selection() ImageSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sel
	out.Blob = append([]byte(nil), s.sel.Blob...)
	return out
}

// Controls returns what the upload control (file name) and the library
// control (id text) currently hold.
func (s *InputSelector) Controls() (upload, library string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadControl, s.libraryControl
}

// SelectUpload makes file the current image and clears the library control.
// A nil file resets the selection. The preview is updated only once the
// upload decodes; a decode failure clears the preview but keeps the selection.
func (s *InputSelector) SelectUpload(ctx context.Context, file *Upload) error {
	if file == nil {
		s.reset()
		return nil
	}
	s.mu.Lock()
	s.sel = ImageSelection{Kind: SelectionUpload, Filename: file.Name, Blob: append([]byte(nil), file.Data...)}
	s.uploadControl = file.Name
	s.libraryControl = ""
	s.mu.Unlock()
	s.view.SetPlaceholderVisible(false)
	s.events.Publish(Event{Name: EventSelectionChanged, Fields: map[string]any{"kind": SelectionUpload.String(), "filename": file.Name}})

	if err := ctx.Err(); err != nil {
		return err
	}
	preview, err := renderPreview(file.Data, s.previewMaxDim)
	if err != nil {
		s.log.Warn().Str("filename", file.Name).Err(err).Msg("upload preview failed")
		s.view.ClearPreview()
		return err
	}
	s.showPreview(preview, SelectionUpload)
	return nil
}

// SelectLibrary makes library image id the current image and clears the
// upload control. An empty id resets the selection. When the image cannot be
// fetched the selection stays set, the preview is cleared and the user is told.
func (s *InputSelector) SelectLibrary(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		s.reset()
		return nil
	}
	s.mu.Lock()
	s.sel = ImageSelection{Kind: SelectionLibrary, ID: id}
	s.libraryControl = id
	s.uploadControl = ""
	s.mu.Unlock()
	s.view.SetPlaceholderVisible(false)
	s.events.Publish(Event{Name: EventSelectionChanged, Fields: map[string]any{"kind": SelectionLibrary.String(), "image_id": id}})

	img, err := s.images.GetImage(ctx, id)
	if err != nil {
		s.log.Warn().Str("image_id", id).Err(err).Msg("library image fetch failed")
		s.view.ClearPreview()
		s.view.Alert(MsgImageNotFound)
		return err
	}
	s.showPreview(img, SelectionLibrary)
	return nil
}

func (s *InputSelector) showPreview(img []byte, kind SelectionKind) {
	s.view.ShowPreview(img)
	s.view.SetPlaceholderVisible(false)
	s.events.Publish(Event{Name: EventPreviewLoaded, Fields: map[string]any{"kind": kind.String(), "bytes": len(img)}})
}

func (s *InputSelector) reset() {
	s.mu.Lock()
	s.sel = ImageSelection{Kind: SelectionNone}
	s.uploadControl = ""
	s.libraryControl = ""
	s.mu.Unlock()
	s.view.ClearPreview()
	s.view.SetPlaceholderVisible(true)
	s.events.Publish(Event{Name: EventSelectionChanged, Fields: map[string]any{"kind": SelectionNone.String()}})
}
