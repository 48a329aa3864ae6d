package e2e

import (
	"context"
	"strings"
	"testing"
	"time"

	"imgclass/internal/apiclient"
	"imgclass/internal/mockapi"
	"imgclass/internal/session"
)

func TestE2E_LibrarySelectionAndPrediction(t *testing.T) {
	h := newHarness(t, mockapi.Options{}, apiclient.Config{})
	ctx := context.Background()

	if err := h.sess.Input.SelectLibrary(ctx, "4"); err != nil {
		t.Fatalf("select library: %v", err)
	}
	want, _ := h.mock.Image("4")
	if string(h.view.Preview()) != string(want) {
		t.Fatalf("preview does not match the library image")
	}
	if h.view.PlaceholderVisible() {
		t.Fatalf("placeholder should be hidden once a preview is shown")
	}

	out, err := h.sess.Predictions.RequestPrediction(ctx)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got, exp := h.view.PredictionText(), "Prediction: "+h.mock.Label(want); got != exp || out.Text() != exp {
		t.Fatalf("prediction text=%q want %q", got, exp)
	}
}

func TestE2E_UploadReplacesLibrarySelection(t *testing.T) {
	h := newHarness(t, mockapi.Options{}, apiclient.Config{})
	ctx := context.Background()
	img, _ := h.mock.Image("7")

	_ = h.sess.Input.SelectLibrary(ctx, "1")
	if err := h.sess.Input.SelectUpload(ctx, &session.Upload{Name: "seven.png", Data: img}); err != nil {
		t.Fatalf("select upload: %v", err)
	}
	upload, library := h.sess.Input.Controls()
	if upload != "seven.png" || library != "" {
		t.Fatalf("controls upload=%q library=%q", upload, library)
	}
	if _, err := h.sess.Predictions.RequestPrediction(ctx); err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got := h.view.PredictionText(); got != "Prediction: "+h.mock.Label(img) {
		t.Fatalf("prediction text=%q", got)
	}
}

func TestE2E_UnknownLibraryImage(t *testing.T) {
	h := newHarness(t, mockapi.Options{}, apiclient.Config{})
	ctx := context.Background()

	if err := h.sess.Input.SelectLibrary(ctx, "404"); err == nil {
		t.Fatalf("expected fetch error")
	}
	if alerts := h.view.Alerts(); len(alerts) != 1 || alerts[0] != session.MsgImageNotFound {
		t.Fatalf("alerts=%v", alerts)
	}
	if sel := h.sess.Input.Selection(); sel.Kind != session.SelectionLibrary || sel.ID != "404" {
		t.Fatalf("selection should stay set, got %+v", sel)
	}
	_, _ = h.sess.Predictions.RequestPrediction(ctx)
	if got := h.view.PredictionText(); got != "Prediction failed: image not found" {
		t.Fatalf("prediction text=%q", got)
	}
}

func TestE2E_LibraryImageCache(t *testing.T) {
	h := newHarness(t, mockapi.Options{}, apiclient.Config{ImageCacheTTL: time.Minute})
	ctx := context.Background()
	_ = h.sess.Input.SelectLibrary(ctx, "2")

	// Replace the server copy; a cached client keeps showing the first bytes.
	h.mock.AddImage("2", []byte("\x89PNG\r\n\x1a\nchanged"))
	_ = h.sess.Input.SelectLibrary(ctx, "3")
	_ = h.sess.Input.SelectLibrary(ctx, "2")
	orig := h.view.Preview()
	if strings.Contains(string(orig), "changed") {
		t.Fatalf("second selection of the same id should be served from cache")
	}
}

// Archive upload, then retrain to completion.
func TestE2E_RetrainAfterUpload(t *testing.T) {
	h := newHarness(t, mockapi.Options{ProgressStep: 40}, apiclient.Config{})
	ctx := context.Background()

	text, err := h.sess.Uploads.UploadRetrainArchive(ctx, &session.Upload{Name: "new.zip", Data: zipBytes(t, "cat/1.png", "dog/1.jpg")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if text != "Uploaded 2 images for retraining. "+session.MsgTriggerRetrain {
		t.Fatalf("upload text=%q", text)
	}
	if _, ok := h.sess.Retrain.Job(); ok {
		t.Fatalf("upload must not start a job")
	}

	if err := h.sess.Retrain.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st := h.waitRetrain(t); st != session.MonitorCompleted {
		t.Fatalf("final state=%s", st)
	}
	if got := h.sess.Retrain.Polls(); got != 3 {
		t.Fatalf("polls=%d want 3", got)
	}
	alerts := h.view.Alerts()
	if alerts[len(alerts)-1] != "Retraining successful" {
		t.Fatalf("alerts=%v", alerts)
	}
	table, renders := h.view.MetricsTable()
	if renders != 1 || !strings.Contains(table, "images") || !strings.HasSuffix(table, " 2") {
		t.Fatalf("metrics table (%d renders):\n%s", renders, table)
	}
}

func TestE2E_RetrainServerFailure(t *testing.T) {
	h := newHarness(t, mockapi.Options{ProgressStep: 30, FailAt: 60}, apiclient.Config{})
	if err := h.sess.Retrain.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st := h.waitRetrain(t); st != session.MonitorFailed {
		t.Fatalf("final state=%s", st)
	}
	if _, renders := h.view.MetricsTable(); renders != 0 {
		t.Fatalf("a failed job has no metrics")
	}
}

// Stopping the service mid-job is a monitoring failure, not a job failure.
func TestE2E_ServiceGoneWhilePolling(t *testing.T) {
	h := newHarness(t, mockapi.Options{ProgressStep: 1}, apiclient.Config{})
	if err := h.sess.Retrain.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.srv.CloseClientConnections()
	h.srv.Close()
	if st := h.waitRetrain(t); st != session.MonitorLost {
		t.Fatalf("final state=%s", st)
	}
	alerts := h.view.Alerts()
	if alerts[len(alerts)-1] != session.MsgMonitoringFailed {
		t.Fatalf("alerts=%v", alerts)
	}
	if len(h.events.Named(session.EventMonitoringFailed)) != 1 {
		t.Fatalf("expected one monitoring_failed event")
	}
}

// The older upload endpoint answers with a job id only; this client treats
// that as a failed upload and does not monitor the job.
func TestE2E_LegacyUploadContractRejected(t *testing.T) {
	h := newHarness(t, mockapi.Options{}, apiclient.Config{RetrainDataPath: "/upload_retrain_images"})
	_, err := h.sess.Uploads.UploadRetrainArchive(context.Background(), &session.Upload{Name: "a.zip", Data: zipBytes(t, "a.png")})
	if err == nil {
		t.Fatalf("expected upload failure")
	}
	if alerts := h.view.Alerts(); len(alerts) != 1 || alerts[0] != session.MsgUploadFailed {
		t.Fatalf("alerts=%v", alerts)
	}
	if h.sess.Retrain.State() != session.MonitorIdle {
		t.Fatalf("no job should be monitored")
	}
}
