package expression

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Renderer draws frames on some surface. The controller never calls it
// from two goroutines at once.
type Renderer interface {
	Render(f Frame) error
	Clear() error
	Close() error
}

// ConsoleRenderer is the headless display: every frame becomes a log line
// and, when out is set, a small ASCII face.
type ConsoleRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	logger *zap.Logger
}

func NewConsoleRenderer(out io.Writer, logger *zap.Logger) *ConsoleRenderer {
	return &ConsoleRenderer{out: out, logger: logger}
}

func (r *ConsoleRenderer) Render(f Frame) error {
	r.logger.Debug("expression frame",
		zap.String("state", string(f.State)),
		zap.Stringer("eyes", f.Eyes),
		zap.Stringer("mouth", f.Mouth))

	if r.out == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.out, "\n[OLED] %s:\n%s\n", strings.ToUpper(string(f.State)), ASCIIFace(f))
	return err
}

func (r *ConsoleRenderer) Clear() error {
	if r.out == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.out, "[OLED] Display cleared")
	return err
}

func (r *ConsoleRenderer) Close() error { return nil }

// ASCIIFace is the two-line text rendering of a frame.
func ASCIIFace(f Frame) string {
	eyes := "  O   O  "
	if f.Eyes == EyesClosed {
		eyes = "  -   -  "
	}

	mouth := "    -    "
	switch f.Mouth {
	case MouthSmile:
		mouth = `   \_/   `
	case MouthDots:
		mouth = "   ...   "
	}
	return eyes + "\n" + mouth
}
