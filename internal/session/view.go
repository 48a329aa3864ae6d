package session

import "sync"

// View is where the session renders. Implementations must be safe for
// concurrent use: the retrain monitor renders from its polling goroutine.
type View interface {
	// ShowPreview displays image bytes and makes the preview visible.
	ShowPreview(img []byte)
	// ClearPreview empties the preview.
	ClearPreview()
	// SetPlaceholderVisible toggles the placeholder shown instead of a preview.
	SetPlaceholderVisible(visible bool)
	// SetPredictionText overwrites the prediction outcome line.
	SetPredictionText(text string)
	// Alert surfaces a message the user must notice.
	Alert(msg string)
	// ShowMetricsTable replaces the metrics panel with table, verbatim.
	ShowMetricsTable(table string)
}

// MemoryView records renders in memory. It backs tests and headless use.
type MemoryView struct {
	mu             sync.Mutex
	preview        []byte
	placeholder    bool
	predictionText string
	alerts         []string
	metrics        string
	metricsRenders int
}

func NewMemoryView() *MemoryView { return &MemoryView{placeholder: true} }

func (v *MemoryView) ShowPreview(img []byte) {
	v.mu.Lock()
	v.preview = append([]byte(nil), img...)
	v.mu.Unlock()
}

func (v *MemoryView) ClearPreview() {
	v.mu.Lock()
	v.preview = nil
	v.mu.Unlock()
}

func (v *MemoryView) SetPlaceholderVisible(visible bool) {
	v.mu.Lock()
	v.placeholder = visible
	v.mu.Unlock()
}

func (v *MemoryView) SetPredictionText(text string) {
	v.mu.Lock()
	v.predictionText = text
	v.mu.Unlock()
}

func (v *MemoryView) Alert(msg string) {
	v.mu.Lock()
	v.alerts = append(v.alerts, msg)
	v.mu.Unlock()
}

func (v *MemoryView) ShowMetricsTable(table string) {
	v.mu.Lock()
	v.metrics = table
	v.metricsRenders++
	v.mu.Unlock()
}

func (v *MemoryView) Preview() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.preview...)
}

func (v *MemoryView) PlaceholderVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.placeholder
}

func (v *MemoryView) PredictionText() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.predictionText
}

// Alerts returns every alert in order.
func (v *MemoryView) Alerts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.alerts...)
}

// MetricsTable returns the panel content and how many times it was rendered.
func (v *MemoryView) MetricsTable() (string, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metrics, v.metricsRenders
}
