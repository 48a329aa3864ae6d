package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"imgclass/pkg/types"
)

var errNetwork = errors.New("connection refused")

type statusStep struct {
	res types.RetrainStatusResponse
	err error
}

// fakeAPI scripts every endpoint the session consumes.
type fakeAPI struct {
	mu sync.Mutex

	images   map[string][]byte
	imageErr error

	predictRes   types.PredictionResponse
	predictErr   error
	uploadCalls  int
	libCalls     int
	lastFilename string
	lastBlob     []byte
	lastLibID    string

	archiveRes   types.UploadResponse
	archiveErr   error
	archiveCalls int

	startRes   types.RetrainStartResponse
	startErr   error
	startCalls int

	statuses    []statusStep
	statusCalls int
	statusIDs   []string
}

func (f *fakeAPI) GetImage(ctx context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	b, ok := f.images[id]
	if !ok {
		return nil, errors.New("status 404")
	}
	return b, nil
}

func (f *fakeAPI) PredictUpload(ctx context.Context, filename string, image []byte) (types.PredictionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	f.lastFilename = filename
	f.lastBlob = append([]byte(nil), image...)
	return f.predictRes, f.predictErr
}

func (f *fakeAPI) PredictLibrary(ctx context.Context, id string) (types.PredictionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.libCalls++
	f.lastLibID = id
	return f.predictRes, f.predictErr
}

func (f *fakeAPI) UploadRetrainArchive(ctx context.Context, filename string, archive []byte) (types.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archiveCalls++
	return f.archiveRes, f.archiveErr
}

func (f *fakeAPI) StartRetrain(ctx context.Context) (types.RetrainStartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startRes, f.startErr
}

func (f *fakeAPI) RetrainStatus(ctx context.Context, id string) (types.RetrainStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusIDs = append(f.statusIDs, id)
	i := f.statusCalls
	f.statusCalls++
	if len(f.statuses) == 0 {
		return types.RetrainStatusResponse{Status: types.RetrainStatusRunning}, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i].res, f.statuses[i].err
}

func (f *fakeAPI) calls() (upload, lib, archive, start, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls, f.libCalls, f.archiveCalls, f.startCalls, f.statusCalls
}

func newTestSession(t *testing.T, api *fakeAPI, opts Options) (*Session, *MemoryView, *MemoryPublisher) {
	t.Helper()
	view := NewMemoryView()
	pub := NewMemoryPublisher()
	opts.View = view
	opts.Events = pub
	opts.Logger = zerolog.Nop()
	return New(api, opts), view, pub
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
