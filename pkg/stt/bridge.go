package stt

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config tunes the Bridge.
type Config struct {
	Enabled bool
	Lang    string
}

// Bridge is the Idle <-> Listening state machine around a Recognizer.
//
// The transcript merge is deliberately asymmetric: a manual stop APPENDS
// the transcript to the input (multiple dictation bursts build up one
// message), while an engine-driven stop REPLACES the input. This mirrors
// the shipped product behavior and must not be "corrected".
type Bridge struct {
	rec    Recognizer
	perm   Permissioner
	cfg    Config
	logger *logrus.Logger

	// cancelOutput silences speech output before listening starts; input
	// and output never run concurrently (one-directional exclusion).
	cancelOutput func()

	// onTranscript hands the captured transcript to the input owner.
	// replace=false means append to the current input value.
	onTranscript func(transcript string, replace bool)

	mu        sync.Mutex
	recording bool
	primed    bool
}

func NewBridge(rec Recognizer, perm Permissioner, cfg Config, logger *logrus.Logger) *Bridge {
	return &Bridge{rec: rec, perm: perm, cfg: cfg, logger: logger}
}

// OnTranscript registers the transcript sink. Must be set before Toggle.
func (b *Bridge) OnTranscript(fn func(transcript string, replace bool)) {
	b.onTranscript = fn
}

// OnCancelOutput registers the speech-output cancel hook.
func (b *Bridge) OnCancelOutput(fn func()) {
	b.cancelOutput = fn
}

func (b *Bridge) Enabled() bool { return b.cfg.Enabled }

func (b *Bridge) Recording() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recording
}

// Prime requests microphone permission once per session. Denial is
// swallowed; the permission prompt stays the platform's business.
func (b *Bridge) Prime(ctx context.Context) {
	if b.perm == nil {
		return
	}
	b.mu.Lock()
	if b.primed {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if err := b.perm.RequestMicrophone(ctx); err != nil {
		if b.logger != nil {
			b.logger.WithError(err).Debug("Microphone permission not granted")
		}
		return
	}
	b.mu.Lock()
	b.primed = true
	b.mu.Unlock()
}

// Toggle starts dictation from Idle and stops it from Listening.
func (b *Bridge) Toggle(ctx context.Context) {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	if b.recording {
		// manual stop: leave Listening first so the watcher treats the
		// engine's end-of-listening as already handled
		b.recording = false
		b.mu.Unlock()

		if err := b.rec.Stop(); err != nil && b.logger != nil {
			b.logger.WithError(err).Debug("Failed to stop recognition")
		}
		b.emit(b.rec.Transcript(), false)
		return
	}
	b.mu.Unlock()

	// one click must start dictation immediately, so silence output first
	if b.cancelOutput != nil {
		b.cancelOutput()
	}
	b.Prime(ctx)

	b.mu.Lock()
	b.recording = true
	b.mu.Unlock()
	b.rec.ResetTranscript()

	if !b.rec.Supported() {
		b.revert()
		return
	}
	done, err := b.rec.Start(ctx, b.cfg.Lang, true)
	if err != nil {
		if b.logger != nil {
			b.logger.WithError(err).Debug("Failed to start recognition")
		}
		b.revert()
		return
	}
	go b.watch(done)
}

// watch handles engine-driven stops: if listening ends while we still
// think we are recording, the transcript replaces the input.
func (b *Bridge) watch(done <-chan struct{}) {
	<-done

	b.mu.Lock()
	if !b.recording {
		b.mu.Unlock()
		return
	}
	b.recording = false
	b.mu.Unlock()

	b.emit(b.rec.Transcript(), true)
	b.rec.ResetTranscript()
}

func (b *Bridge) emit(transcript string, replace bool) {
	if b.onTranscript != nil {
		b.onTranscript(transcript, replace)
	}
}

func (b *Bridge) revert() {
	b.mu.Lock()
	b.recording = false
	b.mu.Unlock()
}
