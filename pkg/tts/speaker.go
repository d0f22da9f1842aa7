package tts

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/s-home/messenger-go/pkg/speech"
)

const (
	defaultVoiceWait  = 1200 * time.Millisecond
	defaultChunkDelay = 60 * time.Millisecond
)

// Config tunes the Speaker. Zero values fall back to the defaults the
// widget ships with (pitch 1.0, rate 0.95, volume 1.0, 220-rune chunks).
type Config struct {
	Enabled       bool
	Lang          string
	VoiceName     string   // preferred voice, tried before VoiceIncludes
	VoiceIncludes []string // name hints, in preference order
	Pitch         float64
	Rate          float64
	Volume        float64
	MaxChunkLen   int
	VoiceWait     time.Duration // how long to wait for the voice list
	ChunkDelay    time.Duration // settle delay before each utterance

	// OnChunk fires once per chunk handed to the engine; hosts hang
	// instrumentation off it.
	OnChunk func(text string)
}

func (c *Config) applyDefaults() {
	if c.Pitch == 0 {
		c.Pitch = 1.0
	}
	if c.Rate == 0 {
		c.Rate = 0.95
	}
	if c.Volume == 0 {
		c.Volume = 1.0
	}
	if c.MaxChunkLen == 0 {
		c.MaxChunkLen = speech.DefaultMaxChunkLen
	}
	if c.VoiceWait == 0 {
		c.VoiceWait = defaultVoiceWait
	}
	if c.ChunkDelay == 0 {
		c.ChunkDelay = defaultChunkDelay
	}
}

// Speaker owns the utterance queue. All methods are safe for concurrent
// use; engine callbacks may arrive on any goroutine.
type Speaker struct {
	engine Engine
	cfg    Config
	logger *logrus.Logger

	mu            sync.Mutex
	queue         []string
	speaking      bool
	active        *Utterance
	cachedVoice   *Voice
	voiceResolved bool
	muted         bool
	gen           uint64 // bumped on cancel; invalidates stale timers and callbacks
}

func NewSpeaker(engine Engine, cfg Config, logger *logrus.Logger) *Speaker {
	cfg.applyDefaults()
	return &Speaker{engine: engine, cfg: cfg, logger: logger}
}

func (s *Speaker) Enabled() bool { return s.cfg.Enabled }

func (s *Speaker) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// SetMuted flips the mute flag; muting cancels any in-flight playback.
func (s *Speaker) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	if muted {
		s.cancelLocked()
	}
	s.mu.Unlock()
}

// Speak sanitizes and chunks text, cancels whatever is playing, and starts
// the new queue. Disabled, muted, or nothing-to-say requests are no-ops.
func (s *Speaker) Speak(text string) {
	if !s.cfg.Enabled {
		return
	}
	chunks := speech.Chunk(text, s.cfg.MaxChunkLen)

	s.mu.Lock()
	if s.muted || len(chunks) == 0 {
		s.mu.Unlock()
		return
	}
	s.cancelLocked()
	s.queue = chunks
	s.mu.Unlock()

	s.playNext()
}

// Cancel stops the engine immediately and empties the queue.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()
}

// Speaking reports whether an utterance is currently playing.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Speaker) cancelLocked() {
	s.gen++
	s.engine.Cancel()
	s.active = nil
	s.speaking = false
	s.queue = nil
}

// playNext pops the head of the queue and schedules it after the settle
// delay. No-op while an utterance is playing; the completion callback
// re-enters here.
func (s *Speaker) playNext() {
	s.mu.Lock()
	if s.speaking || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.speaking = true
	gen := s.gen
	s.mu.Unlock()

	time.AfterFunc(s.cfg.ChunkDelay, func() {
		s.submit(next, gen)
	})
}

func (s *Speaker) submit(text string, gen uint64) {
	voice := s.ensureVoice()

	s.mu.Lock()
	if gen != s.gen {
		// cancelled while waiting for the delay or the voice list
		s.mu.Unlock()
		return
	}

	u := &Utterance{
		Text:   text,
		Voice:  voice,
		Pitch:  s.cfg.Pitch,
		Rate:   s.cfg.Rate,
		Volume: s.cfg.Volume,
	}
	u.OnEnd = func() { s.advance(gen) }
	u.OnError = func(err error) {
		if s.logger != nil {
			s.logger.WithError(err).Debug("Utterance failed, continuing with next chunk")
		}
		s.advance(gen)
	}
	s.active = u
	s.mu.Unlock()

	if err := s.engine.Speak(u); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("Failed to submit utterance")
		}
		s.mu.Lock()
		if gen == s.gen {
			s.speaking = false
			s.active = nil
		}
		s.mu.Unlock()
		return
	}
	if s.cfg.OnChunk != nil {
		s.cfg.OnChunk(text)
	}
}

// advance treats errors like normal completion: playback continues with the
// next queued chunk instead of aborting the queue.
func (s *Speaker) advance(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.speaking = false
	s.active = nil
	s.mu.Unlock()

	s.playNext()
}

// ensureVoice resolves the session voice and caches it. The voice list
// may be empty at call time, so we race the engine's voices-changed
// signal against a timeout to never hang on engines that stay silent.
// A nil resolution is not cached: the next utterance retries, picking up
// voice lists that load late.
func (s *Speaker) ensureVoice() *Voice {
	s.mu.Lock()
	if s.voiceResolved {
		v := s.cachedVoice
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()

	voices := s.engine.Voices()
	if len(voices) == 0 {
		select {
		case <-s.engine.VoicesChanged():
		case <-time.After(s.cfg.VoiceWait):
		}
		voices = s.engine.Voices()
	}

	hints := s.cfg.VoiceIncludes
	if s.cfg.VoiceName != "" {
		hints = append([]string{s.cfg.VoiceName}, hints...)
	}
	v := pickVoice(voices, s.cfg.Lang, hints)

	s.mu.Lock()
	s.cachedVoice = v
	s.voiceResolved = v != nil
	s.mu.Unlock()
	return v
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
