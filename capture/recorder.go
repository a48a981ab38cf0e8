// Package capture owns the press-and-hold audio recording session: a
// two-state machine (idle/recording) with a chunk buffer that is assembled
// and transcribed when the gesture ends.
package capture

import (
	"context"
	"errors"
	"log"
	"sync"
)

// MimeType is the container format the assembled recording is labelled with.
const MimeType = "audio/webm"

var ErrNotRecording = errors.New("capture: no recording in progress")

// Source is a held audio input device. Close releases the device lock and
// must be safe to call exactly once per acquisition.
type Source interface {
	Close() error
}

// SourceProvider acquires the audio device when a recording begins.
// Acquisition fails when permission is denied or no device exists.
type SourceProvider interface {
	Acquire(ctx context.Context) (Source, error)
}

// ProviderFunc adapts a function to the SourceProvider interface.
type ProviderFunc func(ctx context.Context) (Source, error)

func (f ProviderFunc) Acquire(ctx context.Context) (Source, error) { return f(ctx) }

type nopSource struct{}

func (nopSource) Close() error { return nil }

// ClientProvider is the provider for deployments where the browser holds the
// real microphone and streams chunks to the server; acquisition always
// succeeds with a no-op device handle.
func ClientProvider() SourceProvider {
	return ProviderFunc(func(ctx context.Context) (Source, error) {
		return nopSource{}, nil
	})
}

// Transcriber converts an assembled audio payload to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Recorder is the per-session capture state machine. All methods are safe
// for concurrent use.
type Recorder struct {
	provider    SourceProvider
	transcriber Transcriber

	mu        sync.Mutex
	source    Source
	recording bool
	chunks    [][]byte
}

// NewRecorder creates a recorder in the idle state.
func NewRecorder(provider SourceProvider, transcriber Transcriber) *Recorder {
	return &Recorder{provider: provider, transcriber: transcriber}
}

// Recording reports whether a capture session is open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Begin acquires the audio source and opens a capture session, clearing any
// buffered chunks from a previous one. Acquisition failure is logged and the
// recorder stays idle; a Begin while already recording is a no-op.
func (r *Recorder) Begin(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return true
	}

	source, err := r.provider.Acquire(ctx)
	if err != nil {
		log.Printf("Audio source unavailable: %v", err)
		return false
	}

	r.source = source
	r.recording = true
	r.chunks = r.chunks[:0]
	return true
}

// Push appends one captured chunk to the session buffer.
func (r *Recorder) Push(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return ErrNotRecording
	}
	if len(chunk) == 0 {
		return nil
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	r.chunks = append(r.chunks, buf)
	return nil
}

// End closes the session, always releasing the audio source, then assembles
// the buffered chunks and transcribes them. It returns the transcription and
// true on success; all failure modes are logged and return false, leaving
// the caller's narrative untouched.
func (r *Recorder) End(ctx context.Context) (string, bool) {
	payload, ok := r.stop()
	if !ok {
		return "", false
	}
	if len(payload) == 0 {
		log.Printf("Recording ended with no audio captured")
		return "", false
	}

	text, err := r.transcriber.Transcribe(ctx, payload, MimeType)
	if err != nil {
		log.Printf("Transcription failed: %v", err)
		return "", false
	}
	return text, true
}

// stop flips the machine back to idle and drains the buffer. The source is
// released on every path.
func (r *Recorder) stop() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil, false
	}
	r.recording = false

	if r.source != nil {
		if err := r.source.Close(); err != nil {
			log.Printf("Failed to release audio source: %v", err)
		}
		r.source = nil
	}

	total := 0
	for _, c := range r.chunks {
		total += len(c)
	}
	payload := make([]byte, 0, total)
	for _, c := range r.chunks {
		payload = append(payload, c...)
	}
	r.chunks = nil
	return payload, true
}
