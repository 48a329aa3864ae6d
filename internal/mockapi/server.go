// Package mockapi is a scripted stand-in for the image-classification
// service. It serves every endpoint the client speaks, with a generated image
// library, hash-derived labels and retraining jobs that advance one step per
// status read. It is a test double, not a model.
package mockapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"imgclass/pkg/types"
)

// maxBodyBytes caps multipart and JSON request bodies.
const maxBodyBytes int64 = 32 << 20

// Options configures New. Zero values select defaults.
type Options struct {
	// Labels the classifier can answer with (default cat, dog, bird).
	Labels []string
	// ProgressStep is added to a job's progress on every status read (default 25).
	ProgressStep float64
	// LibrarySize is how many generated images are served under ids 1..N (default 10).
	LibrarySize int
	// FailAt makes jobs fail once progress reaches it. Zero disables.
	FailAt float64
	// RejectRetrain, when set, makes POST /retrain answer with this message
	// and no job id.
	RejectRetrain string
	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string
}

// Server holds the mock service state. It is safe for concurrent use.
type Server struct {
	opts    Options
	library *library
	jobs    *jobStore
	uploads atomic.Int64
}

// New returns a server seeded with a generated image library.
func New(opts Options) *Server {
	if len(opts.Labels) == 0 {
		opts.Labels = []string{"cat", "dog", "bird"}
	}
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = 25
	}
	if opts.LibrarySize <= 0 {
		opts.LibrarySize = 10
	}
	return &Server{
		opts:    opts,
		library: newLibrary(opts.LibrarySize),
		jobs:    newJobStore(opts.ProgressStep, opts.FailAt),
	}
}

// AddImage stores data under id in the library.
func (s *Server) AddImage(id string, data []byte) { s.library.put(id, data) }

// Image returns the library bytes for id.
func (s *Server) Image(id string) ([]byte, bool) {
	img, ok := s.library.get(id)
	return img.Data, ok
}

// Label returns the label the server would predict for data.
func (s *Server) Label(data []byte) string { return classify(s.opts.Labels, data) }

// UploadedImages reports how many training images archives have carried so far.
func (s *Server) UploadedImages() int { return int(s.uploads.Load()) }

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(MetricsMiddleware)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/image/{id}", s.handleImage)
	r.Post("/predict_upload", s.handlePredictUpload)
	r.Post("/predict_lib", s.handlePredictLib)
	r.Post("/upload_retrain_data", s.handleUploadRetrainData)
	r.Post("/upload_retrain_images", s.handleUploadRetrainImages)
	r.Post("/retrain", s.handleRetrain)
	r.Get("/retrain_status/{id}", s.handleRetrainStatus)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if zlog != nil {
			zlog.Info().Str("addr", addr).Int("library", s.library.len()).Msg("mock api listening")
		}
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	img, ok := s.library.get(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "image not found")
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}

func (s *Server) handlePredictUpload(w http.ResponseWriter, r *http.Request) {
	data, _, err := formFile(w, r, "image")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "no image provided")
		return
	}
	s.predict(w, data)
}

func (s *Server) handlePredictLib(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.PredictLibRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ImageID) == "" {
		writeJSONError(w, http.StatusBadRequest, "image_id is required")
		return
	}
	img, ok := s.library.get(req.ImageID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "image not found")
		return
	}
	s.predict(w, img.Data)
}

func (s *Server) predict(w http.ResponseWriter, data []byte) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid image")
		return
	}
	writeJSON(w, http.StatusOK, types.PredictionResponse{Prediction: classify(s.opts.Labels, data)})
}

func (s *Server) handleUploadRetrainData(w http.ResponseWriter, r *http.Request) {
	n, ok := s.readArchive(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.UploadResponse{Message: fmt.Sprintf("Uploaded %d images for retraining.", n)})
}

// handleUploadRetrainImages is the older revision of the upload endpoint:
// it starts a job immediately and answers with its id.
func (s *Server) handleUploadRetrainImages(w http.ResponseWriter, r *http.Request) {
	n, ok := s.readArchive(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.UploadResponse{RetrainID: s.jobs.create(n)})
}

func (s *Server) readArchive(w http.ResponseWriter, r *http.Request) (int, bool) {
	data, _, err := formFile(w, r, "zip_file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "no zip_file provided")
		return 0, false
	}
	n, err := countImages(data)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid zip archive")
		return 0, false
	}
	if n == 0 {
		writeJSONError(w, http.StatusBadRequest, "archive contains no images")
		return 0, false
	}
	s.uploads.Add(int64(n))
	return n, true
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	if s.opts.RejectRetrain != "" {
		retrainJobsTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusOK, types.RetrainStartResponse{Message: s.opts.RejectRetrain})
		return
	}
	writeJSON(w, http.StatusOK, types.RetrainStartResponse{RetrainID: s.jobs.create(s.UploadedImages())})
}

func (s *Server) handleRetrainStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.jobs.advance(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown retrain id")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// formFile reads a single multipart file field into memory.
func formFile(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return b, hdr.Filename, nil
}

// countImages returns the number of image files in a zip archive.
func countImages(data []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".jpg", ".jpeg", ".png", ".gif":
			n++
		}
	}
	return n, nil
}
