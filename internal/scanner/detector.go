package scanner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrDetectorUnavailable is returned when a detector cannot be acquired:
// a missing or busy scanner device, or a detector already in use.
var ErrDetectorUnavailable = errors.New("detector unavailable")

// Detector produces raw code strings. Open acquires the underlying
// device; the returned channel is closed when the source ends. Close
// releases the device and may be called more than once.
type Detector interface {
	Open(ctx context.Context) (<-chan string, error)
	Close() error
}

// LineDetector reads one code per line. Keyboard-wedge and serial
// scanners both terminate a read with a newline.
type LineDetector struct {
	Path   string
	Reader io.Reader

	mu   sync.Mutex
	file *os.File
}

func (d *LineDetector) Open(ctx context.Context) (<-chan string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	src := d.Reader
	if d.Path != "" {
		f, err := os.Open(d.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
		}
		d.file = f
		src = f
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no input", ErrDetectorUnavailable)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(src)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (d *LineDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// ChanDetector is fed programmatically, by the console or an HTTP handler.
type ChanDetector struct {
	mu   sync.Mutex
	ch   chan string
	open bool
}

func NewChanDetector() *ChanDetector {
	return &ChanDetector{}
}

func (d *ChanDetector) Open(context.Context) (<-chan string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil, fmt.Errorf("%w: already open", ErrDetectorUnavailable)
	}
	d.ch = make(chan string, 16)
	d.open = true
	return d.ch, nil
}

// Push hands one code to the session. It reports false when the detector
// is not open or its buffer is full.
func (d *ChanDetector) Push(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return false
	}
	select {
	case d.ch <- code:
		return true
	default:
		return false
	}
}

func (d *ChanDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		close(d.ch)
		d.open = false
	}
	return nil
}
