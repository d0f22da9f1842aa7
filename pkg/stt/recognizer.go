// Package stt toggles dictation over an injected speech-recognition
// engine and merges the transcript into the widget's text input.
package stt

import "context"

// Recognizer abstracts the platform speech-recognition service. The
// transcript accumulates while listening and is read out by the bridge
// when listening stops.
//
// Start returns a channel that is closed when listening ends for any
// reason, including an explicit Stop and engine-driven termination
// (user silence, engine timeout).
type Recognizer interface {
	Supported() bool
	Start(ctx context.Context, lang string, continuous bool) (<-chan struct{}, error)
	Stop() error
	Transcript() string
	ResetTranscript()
}

// Permissioner requests microphone access. Hosts without a permission
// concept pass nil; the bridge then skips priming.
type Permissioner interface {
	RequestMicrophone(ctx context.Context) error
}
