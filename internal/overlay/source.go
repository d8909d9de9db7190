package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/biomech-visualizer/backend/internal/models"
)

// ErrEstimatorUnavailable is returned by Start when no pose estimator can
// produce frames. Callers fall back to showing video without an overlay.
var ErrEstimatorUnavailable = errors.New("pose estimator unavailable")

// FrameHandler receives each frame a source produces.
type FrameHandler func(models.FrameResults)

// Source produces landmark frames at its own cadence.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	OnFrame(fn FrameHandler)
}

var (
	_ Source = (*StreamSource)(nil)
	_ Source = (*ReplaySource)(nil)
)

// handlerSlot guards the registered handler.
type handlerSlot struct {
	mu sync.RWMutex
	fn FrameHandler
}

func (h *handlerSlot) set(fn FrameHandler) {
	h.mu.Lock()
	h.fn = fn
	h.mu.Unlock()
}

func (h *handlerSlot) deliver(f models.FrameResults) {
	h.mu.RLock()
	fn := h.fn
	h.mu.RUnlock()
	if fn != nil {
		fn(f)
	}
}

// StreamSource forwards frames pushed by a transport, typically the
// websocket reader for a browser that runs pose estimation itself.
type StreamSource struct {
	handler   handlerSlot
	available bool

	mu      sync.Mutex
	running bool
}

// NewStreamSource creates a source. available reports whether the remote
// side has a working estimator.
func NewStreamSource(available bool) *StreamSource {
	return &StreamSource{available: available}
}

func (s *StreamSource) OnFrame(fn FrameHandler) { s.handler.set(fn) }

func (s *StreamSource) Start(ctx context.Context) error {
	if !s.available {
		return ErrEstimatorUnavailable
	}
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return nil
}

func (s *StreamSource) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// Push delivers f to the handler. Frames pushed while stopped are dropped
// and reported as false.
func (s *StreamSource) Push(f models.FrameResults) bool {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return false
	}
	s.handler.deliver(f)
	return true
}

// ReplaySource plays a recorded list of frames at a fixed rate.
type ReplaySource struct {
	handler handlerSlot
	frames  []models.FrameResults
	fps     float64
	loop    bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReplaySource creates a replay of frames at fps. With loop set the
// recording restarts after the last frame.
func NewReplaySource(frames []models.FrameResults, fps float64, loop bool) *ReplaySource {
	if fps <= 0 {
		fps = 30
	}
	return &ReplaySource{frames: frames, fps: fps, loop: loop}
}

func (r *ReplaySource) OnFrame(fn FrameHandler) { r.handler.set(fn) }

// Start begins playback in the background. An empty recording has no
// estimator output and returns ErrEstimatorUnavailable.
func (r *ReplaySource) Start(ctx context.Context) error {
	if len(r.frames) == 0 {
		return ErrEstimatorUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return fmt.Errorf("replay already started")
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
	return nil
}

// Stop ends playback and waits for the playback goroutine. It is safe to
// call more than once.
func (r *ReplaySource) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done is closed when playback finishes or is stopped.
func (r *ReplaySource) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *ReplaySource) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Duration(float64(time.Second) / r.fps))
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if i >= len(r.frames) {
			if !r.loop {
				return
			}
			i = 0
		}
		r.handler.deliver(r.frames[i])
		i++
	}
}

// DecodeRecording parses a recording as a JSON array or a msgpack array
// of frames.
func DecodeRecording(data []byte) ([]models.FrameResults, error) {
	var frames []models.FrameResults
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &frames); err != nil {
			return nil, fmt.Errorf("decode json recording: %w", err)
		}
		return frames, nil
	}
	if err := msgpack.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("decode msgpack recording: %w", err)
	}
	return frames, nil
}

// LoadRecording reads a recording file.
func LoadRecording(path string) ([]models.FrameResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeRecording(data)
}
