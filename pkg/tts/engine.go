// Package tts serializes text-to-speech playback over an injected
// synthesis engine: at most one utterance plays at a time, queued chunks
// play back-to-back, and a new speak request always preempts the current
// one.
package tts

// Voice describes one synthesis voice offered by an Engine.
type Voice struct {
	Name string
	URI  string
	Lang string
}

// Utterance is one unit of text submitted to the engine for vocalization.
// OnEnd and OnError fire asynchronously when playback finishes or fails.
type Utterance struct {
	Text    string
	Voice   *Voice
	Pitch   float64
	Rate    float64
	Volume  float64
	OnEnd   func()
	OnError func(err error)
}

// Engine abstracts the platform speech-synthesis service. Implementations
// are event-driven: Speak returns once the utterance is submitted and the
// utterance callbacks report the outcome later.
//
// Voices may legitimately be empty right after startup; VoicesChanged
// signals once the engine has loaded its voice list. Engines that never
// signal are tolerated, the Speaker races the wait against a timeout.
type Engine interface {
	Speak(u *Utterance) error
	Cancel()
	Voices() []Voice
	VoicesChanged() <-chan struct{}
}

// pickVoice selects a voice by exact language match plus the first matching
// name hint, falling back to the first language match, then to nil (engine
// default).
func pickVoice(voices []Voice, lang string, hints []string) *Voice {
	list := voices
	if lang != "" {
		list = nil
		for _, v := range voices {
			if equalFold(v.Lang, lang) {
				list = append(list, v)
			}
		}
	}
	for _, hint := range hints {
		if hint == "" {
			continue
		}
		for i := range list {
			if containsFold(list[i].Name, hint) || containsFold(list[i].URI, hint) {
				return &list[i]
			}
		}
	}
	if len(list) > 0 {
		return &list[0]
	}
	return nil
}
