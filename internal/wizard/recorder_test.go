package wizard

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCapture struct {
	clip AudioClip
	fail error
}

func (f *fakeCapture) Stop() (AudioClip, error) {
	if f.fail != nil {
		return AudioClip{}, f.fail
	}
	return f.clip, nil
}

type fakeMic struct {
	fail    error
	capture *fakeCapture
	starts  int
}

func (f *fakeMic) Start(ctx context.Context) (Capture, error) {
	f.starts++
	if f.fail != nil {
		return nil, f.fail
	}
	if f.capture == nil {
		f.capture = &fakeCapture{clip: AudioClip{Data: []byte("audio"), MimeType: "audio/webm"}}
	}
	return f.capture, nil
}

func TestRecorderStartStop(t *testing.T) {
	r := NewRecorder(&fakeMic{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Recording() {
		t.Fatalf("should be recording")
	}

	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if clip == nil || string(clip.Data) != "audio" {
		t.Fatalf("clip not finalized: %+v", clip)
	}
	if r.Recording() {
		t.Fatalf("should be idle after stop")
	}
}

func TestRecorderDeniedMicrophone(t *testing.T) {
	r := NewRecorder(&fakeMic{fail: errors.New("permission denied")})
	if err := r.Start(context.Background()); err == nil {
		t.Fatalf("denied microphone should fail start")
	}
	if r.Recording() {
		t.Fatalf("denied start must leave the recorder idle")
	}
}

func TestRecorderAbsentMicrophone(t *testing.T) {
	r := NewRecorder(nil)
	if err := r.Start(context.Background()); !errors.Is(err, ErrMicUnavailable) {
		t.Fatalf("expected ErrMicUnavailable, got %v", err)
	}
}

func TestRecorderSingleBufferInvariant(t *testing.T) {
	mic := &fakeMic{}
	r := NewRecorder(mic)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// A second recording is refused until the clip is removed explicitly.
	if err := r.Start(context.Background()); !errors.Is(err, ErrClipExists) {
		t.Fatalf("expected ErrClipExists, got %v", err)
	}
	if mic.starts != 1 {
		t.Fatalf("refused start must not touch the microphone")
	}

	r.RemoveClip()
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start after remove: %v", err)
	}
	if _, err := r.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestRecorderDoubleStartRefused(t *testing.T) {
	r := NewRecorder(&fakeMic{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if _, err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestRecorderStopWhileIdle(t *testing.T) {
	r := NewRecorder(&fakeMic{})
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestRecorderElapsedCounter(t *testing.T) {
	r := NewRecorder(&fakeMic{})
	r.interval = 5 * time.Millisecond

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for r.Elapsed() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("elapsed counter never advanced")
		}
		time.Sleep(time.Millisecond)
	}

	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if clip.Seconds < 2 {
		t.Fatalf("clip duration should carry the elapsed count, got %d", clip.Seconds)
	}
}

func TestRecorderCloseMidRecording(t *testing.T) {
	r := NewRecorder(&fakeMic{})
	r.interval = 5 * time.Millisecond

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	r.Close()
	if r.Recording() {
		t.Fatalf("close must stop an in-flight recording")
	}
	if r.Clip() != nil {
		t.Fatalf("close must discard the buffer")
	}

	// The tick loop has exited; the counter no longer advances.
	before := r.Elapsed()
	time.Sleep(25 * time.Millisecond)
	if r.Elapsed() != before {
		t.Fatalf("ticker leaked past close")
	}

	r.Close()
}
