package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"iadetakip/internal"
)

type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// IngestFunc records one raw detection. ok is false when the code was
// not a valid barcode.
type IngestFunc func(ctx context.Context, raw string) (item internal.ReceivedItem, ok bool, err error)

type Result struct {
	Raw  string
	Item internal.ReceivedItem
	OK   bool
	Err  error
}

// Session owns a detector while Active and feeds its detections, one at
// a time, to the ingest function.
type Session struct {
	detector Detector
	ingest   IngestFunc

	// OnResult, when set, is called from the consumer goroutine after
	// every detection. It must not call Stop.
	OnResult func(Result)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(detector Detector, ingest IngestFunc) *Session {
	return &Session{detector: detector, ingest: ingest}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the detector and begins consuming detections. Starting
// an active session is a no-op. If the detector cannot be acquired the
// session stays Idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Active {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	codes, err := s.detector.Open(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("starting scan session: %w", err)
	}

	done := make(chan struct{})
	s.state = Active
	s.cancel = cancel
	s.done = done
	go s.consume(runCtx, codes, done)

	slog.Info("scan session started")
	return nil
}

// Stop cancels the consumer, releases the detector and waits for the
// consumer to exit. Stopping an idle session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return nil
	}
	done := s.done
	err := s.release()
	s.mu.Unlock()

	<-done
	slog.Info("scan session stopped")
	return err
}

// Done is closed when the current run ends, by Stop or because the
// detector ran out of input. It is nil for an idle session.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// release must be called with mu held.
func (s *Session) release() error {
	s.cancel()
	s.state = Idle
	return s.detector.Close()
}

func (s *Session) consume(ctx context.Context, codes <-chan string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-codes:
			if !ok {
				s.mu.Lock()
				if s.state == Active && s.done == done {
					_ = s.release()
				}
				s.mu.Unlock()
				return
			}
			s.handle(ctx, raw)
		}
	}
}

func (s *Session) handle(ctx context.Context, raw string) {
	item, ok, err := s.ingest(ctx, raw)
	if err != nil {
		slog.Error("scan ingest failed", "raw", raw, "error", err)
	}
	if s.OnResult != nil {
		s.OnResult(Result{Raw: raw, Item: item, OK: ok, Err: err})
	}
}
