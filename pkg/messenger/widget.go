package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/s-home/messenger-go/pkg/attachment"
	"github.com/s-home/messenger-go/pkg/kvstore"
	"github.com/s-home/messenger-go/pkg/stt"
	"github.com/s-home/messenger-go/pkg/tts"
)

const (
	defaultStorageKey  = "messenger"
	defaultPlaceholder = "Send message..."

	// typing placeholder; autoscroll skips it to avoid jitter while a
	// streamed bot message is still a stub
	typingPlaceholder = "..."

	persistTimeout = 5 * time.Second
)

// Persisted record names under the storage key prefix.
const (
	recMessages = "messages"
	recSettings = "settings"
	recTTSMuted = "ttsMuted"
	recFilters  = "filters"
	recBgImage  = "bgImage"
	recAvatar   = "userAvatar"
)

// Options configures a Widget. OnSend is required; everything else has a
// sensible default. Engines are injected so hosts (and tests) own their
// lifecycle.
type Options struct {
	OnSend func(args SendArgs) // required; invoked on every user send

	// persistence
	Persist    bool          // enable persistence through Store
	Store      kvstore.Store // backend handle; nil disables persistence
	StorageKey string        // key prefix for all persisted records

	// speech output
	TTSEngine    tts.Engine
	TTS          tts.Config // Enabled gates speech output
	TTSDefaultOn bool       // initial unmuted state

	// speech input
	Recognizer   stt.Recognizer
	STT          stt.Config
	Permissioner stt.Permissioner

	// content
	InputPlaceholder string
	InitialMessages  []Message
	SettingsSchema   []SettingField
	Filters          []FilterSpec
	Attachment       attachment.Options

	// rendering hooks
	RenderMessage func(m Message) string // override default message rendering
	LabelUser     map[string]string
	OnAutoscroll  func() // fired when the message list grows, minus the typing stub

	Logger *logrus.Logger
}

// Widget is the orchestration state machine tying the message store,
// settings engine, persistence and both speech directions together.
//
// Lifecycle: New -> Mount (hydration) -> Ready; Close on teardown.
// Persistence write-back only activates once hydration has completed, so
// transient defaults never clobber stored state.
type Widget struct {
	opts    Options
	logger  *logrus.Logger
	speaker *tts.Speaker
	bridge  *stt.Bridge

	mu            sync.Mutex
	messages      []Message
	input         string
	attachmentB64 string
	showSettings  bool
	settings      Settings
	filterState   FilterState
	hydrated      bool
	closed        bool
	gesturePrimed bool
	lastInputKey  string
}

// New validates the options and builds an unmounted widget.
func New(opts Options) (*Widget, error) {
	if opts.OnSend == nil {
		return nil, fmt.Errorf("messenger: OnSend callback is required")
	}
	if opts.StorageKey == "" {
		opts.StorageKey = defaultStorageKey
	}
	if opts.InputPlaceholder == "" {
		opts.InputPlaceholder = defaultPlaceholder
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	if opts.TTSEngine == nil {
		opts.TTS.Enabled = false
		opts.TTSEngine = noopEngine{}
	}
	if opts.Recognizer == nil {
		opts.STT.Enabled = false
		opts.Recognizer = noopRecognizer{}
	}

	w := &Widget{
		opts:        opts,
		logger:      logger,
		speaker:     tts.NewSpeaker(opts.TTSEngine, opts.TTS, logger),
		bridge:      stt.NewBridge(opts.Recognizer, opts.Permissioner, opts.STT, logger),
		settings:    seedSettings(opts.SettingsSchema),
		filterState: seedFilterState(opts.Filters),
	}
	w.speaker.SetMuted(!opts.TTSDefaultOn)

	w.bridge.OnCancelOutput(w.speaker.Cancel)
	w.bridge.OnTranscript(func(transcript string, replace bool) {
		w.mu.Lock()
		if replace {
			w.input = transcript
		} else {
			w.input += transcript
		}
		w.mu.Unlock()
	})

	return w, nil
}

// Mount hydrates state from the persistence backend and marks the widget
// ready. Read failures are logged and fall back to the configured
// defaults; hydration always completes.
func (w *Widget) Mount(ctx context.Context) error {
	if !w.persistEnabled() {
		w.mu.Lock()
		w.messages = append([]Message(nil), w.opts.InitialMessages...)
		w.hydrated = true
		w.mu.Unlock()
		w.maybeAutoscroll()
		return nil
	}

	var (
		msgs    []Message
		setts   Settings
		muted   bool
		filters FilterState

		haveMsgs, haveSetts, haveMuted, haveFilters bool
	)

	haveMsgs = w.readRecord(ctx, recMessages, &msgs)
	haveSetts = w.readRecord(ctx, recSettings, &setts)
	haveMuted = w.readRecord(ctx, recTTSMuted, &muted)
	haveFilters = w.readRecord(ctx, recFilters, &filters)

	w.mu.Lock()
	if haveMsgs {
		w.messages = msgs
	} else {
		w.messages = append([]Message(nil), w.opts.InitialMessages...)
	}
	if haveSetts && setts != nil {
		w.settings = setts
	}
	if haveFilters && filters != nil {
		w.filterState = filters
	}
	w.hydrated = true
	w.mu.Unlock()

	if haveMuted {
		w.speaker.SetMuted(muted)
	}

	w.maybeAutoscroll()
	return nil
}

// Close cancels speech output and stops scheduling persistence writes.
// In-flight writes are not aborted.
func (w *Widget) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.speaker.Cancel()
}

// PointerDown is the host's user-gesture hook: every interaction silences
// speech output, and the first one primes the microphone permission so a
// later record toggle starts without prompt friction.
func (w *Widget) PointerDown(ctx context.Context) {
	w.speaker.Cancel()

	w.mu.Lock()
	first := !w.gesturePrimed
	w.gesturePrimed = true
	w.mu.Unlock()

	if first {
		w.bridge.Prime(ctx)
	}
}

func (w *Widget) persistEnabled() bool {
	return w.opts.Persist && w.opts.Store != nil
}

func (w *Widget) key(record string) string {
	return w.opts.StorageKey + ":" + record
}

// readRecord loads one persisted record; false means absent or unreadable.
func (w *Widget) readRecord(ctx context.Context, record string, out any) bool {
	raw, found, err := w.opts.Store.Get(ctx, w.key(record))
	if err != nil {
		w.logger.WithError(err).WithField("record", record).Warn("Failed to read persisted record")
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		w.logger.WithError(err).WithField("record", record).Warn("Failed to decode persisted record")
		return false
	}
	return true
}

// persistAll snapshots the four records under the lock and writes them in
// the background. Writes may complete out of order; in-memory state is the
// source of truth and is never read back after hydration.
func (w *Widget) persistAll() {
	w.mu.Lock()
	if !w.hydrated || w.closed || !w.persistEnabled() {
		w.mu.Unlock()
		return
	}
	records := map[string][]byte{}
	marshalInto(records, recMessages, w.messagesLocked())
	marshalInto(records, recSettings, w.settings)
	marshalInto(records, recTTSMuted, w.speaker.Muted())
	marshalInto(records, recFilters, w.filterState)
	w.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		for record, raw := range records {
			if err := w.opts.Store.Set(ctx, w.key(record), raw); err != nil {
				w.logger.WithError(err).WithField("record", record).Warn("Failed to persist record")
			}
		}
	}()
}

// deleteRecords removes persisted records in the background; used by
// Clear and DeleteHistoryAll.
func (w *Widget) deleteRecords(records ...string) {
	if !w.persistEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		for _, record := range records {
			if err := w.opts.Store.Delete(ctx, w.key(record)); err != nil {
				w.logger.WithError(err).WithField("record", record).Warn("Failed to delete persisted record")
			}
		}
	}()
}

func marshalInto(records map[string][]byte, record string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	records[record] = raw
}

// messagesLocked returns the log without copying; callers hold w.mu and
// must not retain the slice.
func (w *Widget) messagesLocked() []Message {
	if w.messages == nil {
		return []Message{}
	}
	return w.messages
}

func (w *Widget) maybeAutoscroll() {
	if w.opts.OnAutoscroll == nil {
		return
	}
	w.mu.Lock()
	skip := len(w.messages) > 0 && w.messages[len(w.messages)-1].Content == typingPlaceholder
	w.mu.Unlock()
	if !skip {
		w.opts.OnAutoscroll()
	}
}

// noopEngine backs widgets constructed without a speech-output engine.
type noopEngine struct{}

func (noopEngine) Speak(u *tts.Utterance) error   { return nil }
func (noopEngine) Cancel()                        {}
func (noopEngine) Voices() []tts.Voice            { return nil }
func (noopEngine) VoicesChanged() <-chan struct{} { return nil }

// noopRecognizer backs widgets constructed without a recognition engine.
type noopRecognizer struct{}

func (noopRecognizer) Supported() bool { return false }
func (noopRecognizer) Start(ctx context.Context, lang string, continuous bool) (<-chan struct{}, error) {
	return nil, fmt.Errorf("speech recognition not available")
}
func (noopRecognizer) Stop() error        { return nil }
func (noopRecognizer) Transcript() string { return "" }
func (noopRecognizer) ResetTranscript()   {}
