package tts

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu      sync.Mutex
	spoken  chan *Utterance
	voices  []Voice
	changed chan struct{}
	cancels int
}

func newFakeEngine(voices ...Voice) *fakeEngine {
	return &fakeEngine{
		spoken:  make(chan *Utterance, 16),
		voices:  voices,
		changed: make(chan struct{}),
	}
}

func (f *fakeEngine) Speak(u *Utterance) error {
	f.spoken <- u
	return nil
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeEngine) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func (f *fakeEngine) Voices() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voices
}

func (f *fakeEngine) setVoices(voices []Voice) {
	f.mu.Lock()
	f.voices = voices
	f.mu.Unlock()
	close(f.changed)
}

func (f *fakeEngine) VoicesChanged() <-chan struct{} { return f.changed }

func testConfig() Config {
	return Config{
		Enabled:    true,
		ChunkDelay: time.Millisecond,
		VoiceWait:  200 * time.Millisecond,
	}
}

func recvUtterance(t *testing.T, engine *fakeEngine) *Utterance {
	t.Helper()
	select {
	case u := <-engine.spoken:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no utterance submitted")
		return nil
	}
}

func assertNoUtterance(t *testing.T, engine *fakeEngine) {
	t.Helper()
	select {
	case u := <-engine.spoken:
		t.Fatalf("unexpected utterance %q", u.Text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSpeakerSequentialPlayback(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "Default", Lang: "de-DE"})
	s := NewSpeaker(engine, testConfig(), logrus.New())

	s.Speak("First. Second!")

	u1 := recvUtterance(t, engine)
	assert.Equal(t, "First.", u1.Text)
	assert.True(t, s.Speaking())

	u1.OnEnd()
	u2 := recvUtterance(t, engine)
	assert.Equal(t, "Second!", u2.Text)

	u2.OnEnd()
	assertNoUtterance(t, engine)
	assert.False(t, s.Speaking())
}

func TestSpeakerErrorAdvancesQueue(t *testing.T) {
	engine := newFakeEngine()
	s := NewSpeaker(engine, testConfig(), logrus.New())

	s.Speak("One. Two.")

	u1 := recvUtterance(t, engine)
	u1.OnError(errors.New("synthesis failed"))

	u2 := recvUtterance(t, engine)
	assert.Equal(t, "Two.", u2.Text)
}

func TestSpeakerCancelThenReplace(t *testing.T) {
	engine := newFakeEngine()
	s := NewSpeaker(engine, testConfig(), logrus.New())

	s.Speak("Old message. With a tail.")
	stale := recvUtterance(t, engine)

	s.Speak("New message.")
	assert.GreaterOrEqual(t, engine.cancelCount(), 2)

	fresh := recvUtterance(t, engine)
	assert.Equal(t, "New message.", fresh.Text)

	// a stale completion must not advance the replaced queue
	stale.OnEnd()
	fresh.OnEnd()
	assertNoUtterance(t, engine)
}

func TestSpeakerMuteSuppressesAndCancels(t *testing.T) {
	engine := newFakeEngine()
	s := NewSpeaker(engine, testConfig(), logrus.New())

	s.SetMuted(true)
	s.Speak("Hello there.")
	assertNoUtterance(t, engine)

	s.SetMuted(false)
	s.Speak("Hello again.")
	u := recvUtterance(t, engine)
	assert.Equal(t, "Hello again.", u.Text)

	s.SetMuted(true)
	assert.False(t, s.Speaking())
}

func TestSpeakerDisabled(t *testing.T) {
	engine := newFakeEngine()
	cfg := testConfig()
	cfg.Enabled = false
	s := NewSpeaker(engine, cfg, logrus.New())

	s.Speak("Should stay silent.")
	assertNoUtterance(t, engine)
}

func TestSpeakerNothingSensibleToSay(t *testing.T) {
	engine := newFakeEngine()
	s := NewSpeaker(engine, testConfig(), logrus.New())

	s.Speak("```code only```")
	assertNoUtterance(t, engine)
}

func TestSpeakerWaitsForLateVoices(t *testing.T) {
	engine := newFakeEngine() // voice list empty at call time
	cfg := testConfig()
	cfg.Lang = "de-DE"
	cfg.VoiceIncludes = []string{"katja"}
	s := NewSpeaker(engine, cfg, logrus.New())

	go func() {
		time.Sleep(20 * time.Millisecond)
		engine.setVoices([]Voice{
			{Name: "Google Deutsch", Lang: "de-DE"},
			{Name: "Microsoft Katja", Lang: "de-DE"},
		})
	}()

	s.Speak("Guten Tag.")
	u := recvUtterance(t, engine)
	require.NotNil(t, u.Voice)
	assert.Equal(t, "Microsoft Katja", u.Voice.Name)
	assert.Equal(t, 0.95, u.Rate)
	assert.Equal(t, 1.0, u.Pitch)
}

func TestSpeakerVoiceTimeoutFallsBackToDefault(t *testing.T) {
	engine := newFakeEngine() // never signals, never has voices
	cfg := testConfig()
	cfg.VoiceWait = 30 * time.Millisecond
	s := NewSpeaker(engine, cfg, logrus.New())

	s.Speak("No voices anywhere.")
	u := recvUtterance(t, engine)
	assert.Nil(t, u.Voice) // engine default
}

func TestSpeakerRetriesVoiceResolutionUntilFound(t *testing.T) {
	engine := newFakeEngine() // voice list empty at first
	cfg := testConfig()
	cfg.VoiceWait = 20 * time.Millisecond
	s := NewSpeaker(engine, cfg, logrus.New())

	s.Speak("First try.")
	u := recvUtterance(t, engine)
	assert.Nil(t, u.Voice)
	u.OnEnd()

	// the empty result must not stick; a list that loads late is picked
	// up by the next utterance
	engine.setVoices([]Voice{{Name: "Late Voice", Lang: "en-US"}})

	s.Speak("Second try.")
	u = recvUtterance(t, engine)
	require.NotNil(t, u.Voice)
	assert.Equal(t, "Late Voice", u.Voice.Name)
}

func TestSpeakerOnChunkHook(t *testing.T) {
	engine := newFakeEngine(Voice{Name: "Default", Lang: "en-US"})
	cfg := testConfig()

	var mu sync.Mutex
	var chunks []string
	cfg.OnChunk = func(text string) {
		mu.Lock()
		chunks = append(chunks, text)
		mu.Unlock()
	}
	s := NewSpeaker(engine, cfg, logrus.New())

	s.Speak("One. Two.")
	recvUtterance(t, engine).OnEnd()
	recvUtterance(t, engine).OnEnd()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"One.", "Two."}, chunks)
}

func TestPickVoice(t *testing.T) {
	voices := []Voice{
		{Name: "Alice", Lang: "en-US"},
		{Name: "Google Deutsch", Lang: "de-DE"},
		{Name: "Microsoft Katja", Lang: "de-DE"},
	}

	v := pickVoice(voices, "de-DE", []string{"katja", "google"})
	require.NotNil(t, v)
	assert.Equal(t, "Microsoft Katja", v.Name)

	v = pickVoice(voices, "de-DE", []string{"nomatch"})
	require.NotNil(t, v)
	assert.Equal(t, "Google Deutsch", v.Name)

	assert.Nil(t, pickVoice(voices, "fr-FR", nil))
	assert.Nil(t, pickVoice(nil, "", nil))
}
