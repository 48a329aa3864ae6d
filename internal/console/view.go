// Package console renders a session to a terminal and drives it from
// line-oriented user input.
package console

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"imgclass/internal/common/fsutil"
)

// View writes session output to a terminal. Previews are written to files
// under PreviewDir since a terminal cannot show images.
type View struct {
	mu         sync.Mutex
	out        io.Writer
	previewDir string
	log        zerolog.Logger

	previews    int
	previewPath string
	placeholder bool
	prediction  string
	metrics     string
}

// NewView returns a view writing to out. An empty previewDir disables
// preview files; previews are then only summarized.
func NewView(out io.Writer, previewDir string, log zerolog.Logger) *View {
	return &View{out: out, previewDir: previewDir, log: log, placeholder: true}
}

func (v *View) ShowPreview(img []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ct := http.DetectContentType(img)
	if v.previewDir == "" {
		v.previewPath = ""
		fmt.Fprintf(v.out, "preview: %d bytes (%s)\n", len(img), ct)
		return
	}
	v.previews++
	p := filepath.Join(v.previewDir, fmt.Sprintf("preview-%03d%s", v.previews, extensionFor(ct)))
	if err := fsutil.WriteFileAtomic(p, img); err != nil {
		v.log.Warn().Str("path", p).Err(err).Msg("write preview")
		v.previewPath = ""
		fmt.Fprintf(v.out, "preview: %d bytes (%s), not saved\n", len(img), ct)
		return
	}
	v.previewPath = p
	fmt.Fprintf(v.out, "preview: %s\n", p)
}

func (v *View) ClearPreview() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.previewPath != "" {
		fmt.Fprintln(v.out, "preview cleared")
	}
	v.previewPath = ""
}

func (v *View) SetPlaceholderVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if visible && !v.placeholder {
		fmt.Fprintln(v.out, "(no image selected)")
	}
	v.placeholder = visible
}

func (v *View) SetPredictionText(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prediction = text
	fmt.Fprintln(v.out, text)
}

func (v *View) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "! %s\n", msg)
}

// ShowMetricsTable prints table inside a frame and replaces the remembered
// panel content.
func (v *View) ShowMetricsTable(table string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.metrics = table
	fmt.Fprint(v.out, frame("metrics", table))
}

// PreviewPath is the file holding the current preview, if any.
func (v *View) PreviewPath() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.previewPath
}

func (v *View) Prediction() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.prediction
}

// Metrics returns the current metrics panel content.
func (v *View) Metrics() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metrics
}

func frame(title, body string) string {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	width := len(title) + 2
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "+- %s %s+\n", title, strings.Repeat("-", width-len(title)-1))
	for _, l := range lines {
		fmt.Fprintf(&b, "| %-*s |\n", width, l)
	}
	fmt.Fprintf(&b, "+%s+\n", strings.Repeat("-", width+2))
	return b.String()
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
