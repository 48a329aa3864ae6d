package mockapi

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strconv"
	"sync"

	"imgclass/pkg/types"
)

const librarySide = 64

// library is the server-held image store addressed by id.
type library struct {
	mu     sync.RWMutex
	images map[string]types.LibraryImage
}

func newLibrary(n int) *library {
	l := &library{images: make(map[string]types.LibraryImage, n)}
	for i := 1; i <= n; i++ {
		l.put(strconv.Itoa(i), swatch(i))
	}
	return l
}

func (l *library) get(id string) (types.LibraryImage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.images[id]
	return img, ok
}

func (l *library) put(id string, data []byte) {
	img := types.LibraryImage{ID: id, ContentType: http.DetectContentType(data), Data: append([]byte(nil), data...)}
	l.mu.Lock()
	l.images[id] = img
	l.mu.Unlock()
}

func (l *library) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.images)
}

// swatch renders a deterministic two-tone PNG for library slot i.
func swatch(i int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, librarySide, librarySide))
	fg := color.RGBA{R: uint8(i * 53), G: uint8(i * 97), B: uint8(i * 151), A: 0xff}
	bg := color.RGBA{R: 0xff - fg.R, G: 0xff - fg.G, B: 0xff - fg.B, A: 0xff}
	for y := 0; y < librarySide; y++ {
		for x := 0; x < librarySide; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// classify picks a label by hashing the image bytes, so the same image always
// gets the same answer.
func classify(labels []string, data []byte) string {
	h := fnv.New32a()
	_, _ = h.Write(data)
	return labels[int(h.Sum32()%uint32(len(labels)))]
}
