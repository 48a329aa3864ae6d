// Package session holds the client-side interaction state of the image
// classifier: which image is selected, what the preview shows, the latest
// prediction outcome, and the lifecycle of a retraining job being watched.
// It is structured into small files by concern:
//
//   - session.go: Session wiring and the API port it consumes.
//   - selection.go: ImageSelection and InputSelector (upload vs. library).
//   - preview.go: decoding uploads into PNG preview thumbnails.
//   - predict.go: PredictionOutcome and PredictionRequester.
//   - upload.go: RetrainDataUploader.
//   - monitor.go: RetrainJobMonitor, the polling state machine.
//   - view.go: the View rendering port and MemoryView.
//   - events.go: Event publishing for observers.
//   - messages.go: user-facing texts.
//
// Rendering is last-resolved-wins: when two operations of one component
// overlap, whichever resolves last owns the visible text.
package session
