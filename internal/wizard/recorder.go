package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrMicUnavailable indicates no microphone capability is present.
	ErrMicUnavailable = errors.New("microphone unavailable")
	// ErrAlreadyRecording indicates Start was called while recording.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrClipExists indicates a finished voice note must be removed before
	// a new recording can start.
	ErrClipExists = errors.New("voice note already recorded")
	// ErrNotRecording indicates Stop was called while idle.
	ErrNotRecording = errors.New("not recording")
)

// AudioClip is a finished voice note artifact.
type AudioClip struct {
	Data     []byte
	MimeType string
	Seconds  int
}

// Capture is an in-flight microphone capture handle.
type Capture interface {
	Stop() (AudioClip, error)
}

// Microphone is the platform audio capability. It must be treated as
// denyable; callers degrade to a disabled recorder on error.
type Microphone interface {
	Start(ctx context.Context) (Capture, error)
}

// Recorder is the two-state voice note sub-machine inside the details step:
// idle or recording, holding at most one finished clip at a time. While
// recording, an elapsed counter ticks once per interval; the ticker is
// stopped on Stop and on Close, including a close mid-recording.
type Recorder struct {
	mic      Microphone
	interval time.Duration

	mu        sync.Mutex
	recording bool
	capture   Capture
	stopTick  chan struct{}
	elapsed   int
	clip      *AudioClip
}

// NewRecorder creates an idle recorder. mic may be nil when the capability
// is absent; Start then fails without crashing.
func NewRecorder(mic Microphone) *Recorder {
	return &Recorder{mic: mic, interval: time.Second}
}

// Start requests the microphone and begins a recording. A prior clip must be
// removed explicitly first; there is never an implicit overwrite.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}
	if r.clip != nil {
		return ErrClipExists
	}
	if r.mic == nil {
		return ErrMicUnavailable
	}

	capture, err := r.mic.Start(ctx)
	if err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	r.capture = capture
	r.recording = true
	r.elapsed = 0
	r.stopTick = make(chan struct{})
	go r.tickLoop(r.stopTick)
	return nil
}

func (r *Recorder) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			r.elapsed++
			r.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// Stop finalizes the capture into a single clip and returns to idle.
func (r *Recorder) Stop() (*AudioClip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil, ErrNotRecording
	}
	close(r.stopTick)
	r.recording = false

	clip, err := r.capture.Stop()
	r.capture = nil
	if err != nil {
		return nil, fmt.Errorf("stop capture: %w", err)
	}
	clip.Seconds = r.elapsed
	r.clip = &clip
	return r.clip, nil
}

// Elapsed returns the recorded seconds of the in-flight capture.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// Recording reports whether a capture is in flight.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Clip returns the finished voice note, if any.
func (r *Recorder) Clip() *AudioClip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clip
}

// RemoveClip discards the finished voice note so a new recording can start.
func (r *Recorder) RemoveClip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clip = nil
}

// Close tears the recorder down, stopping the ticker and discarding any
// in-flight capture. Safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		close(r.stopTick)
		r.recording = false
		if r.capture != nil {
			_, _ = r.capture.Stop()
			r.capture = nil
		}
	}
	r.clip = nil
}
