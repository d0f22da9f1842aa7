package messenger

import (
	"context"
	"strings"
	"time"

	"github.com/s-home/messenger-go/pkg/attachment"
)

// AddMessages appends messages to the log in order. Missing CreatedAt
// stamps are filled in, the first speakable bot message of the batch is
// routed to speech output, and the new log is persisted.
func (w *Widget) AddMessages(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}

	now := time.Now().UnixMilli()
	var speak string

	w.mu.Lock()
	for _, m := range msgs {
		if m.CreatedAt == 0 {
			m.CreatedAt = now
		}
		if m.Type == "" {
			m.Type = TypeBot
		}
		if speak == "" && m.speakable() {
			speak = m.Content
		}
		w.messages = append(w.messages, m)
	}
	w.mu.Unlock()

	if speak != "" {
		w.speaker.Speak(speak)
	}
	w.persistAll()
	w.maybeAutoscroll()
}

// UpdateMessage patches the message with the given identity key, or
// appends a new message when no match exists. Patch fields win on
// conflict; nil fields leave the target untouched. A patched non-empty
// content is re-spoken, matching how streamed bot replies finalize.
// An empty key is ignored.
func (w *Widget) UpdateMessage(key string, patch MessagePatch) {
	if key == "" {
		return
	}

	var speak string

	w.mu.Lock()
	idx := -1
	for i := range w.messages {
		if w.messages[i].Key() == key {
			idx = i
			break
		}
	}

	if idx >= 0 {
		m := &w.messages[idx]
		if m.ID == "" {
			m.ID = key
		}
		if patch.Type != nil {
			m.Type = *patch.Type
		}
		if patch.Content != nil {
			m.Content = *patch.Content
		}
		if patch.Images != nil {
			m.Images = patch.Images
		}
		if patch.Meta != nil {
			m.Meta = patch.Meta
		}
		if patch.Content != nil && m.speakable() {
			speak = m.Content
		}
	} else {
		m := Message{ID: key, Type: TypeBot, CreatedAt: time.Now().UnixMilli()}
		if patch.Type != nil {
			m.Type = *patch.Type
		}
		if patch.Content != nil {
			m.Content = *patch.Content
		}
		m.Images = patch.Images
		m.Meta = patch.Meta
		if m.speakable() {
			speak = m.Content
		}
		w.messages = append(w.messages, m)
	}
	w.mu.Unlock()

	if speak != "" {
		w.speaker.Speak(speak)
	}
	w.persistAll()
	w.maybeAutoscroll()
}

// RemoveMessage drops the message with the given identity key. Unknown
// and empty keys are a no-op.
func (w *Widget) RemoveMessage(key string) {
	if key == "" {
		return
	}

	w.mu.Lock()
	kept := w.messages[:0]
	for _, m := range w.messages {
		if m.Key() != key {
			kept = append(kept, m)
		}
	}
	changed := len(kept) != len(w.messages)
	w.messages = kept
	w.mu.Unlock()

	if changed {
		w.persistAll()
	}
}

// Clear empties the message log and removes its persisted record.
// Settings and filters survive. Idempotent.
func (w *Widget) Clear() {
	w.mu.Lock()
	w.messages = nil
	w.mu.Unlock()
	w.deleteRecords(recMessages)
}

// DeleteHistoryAll removes every persisted record under the storage key
// and empties the in-memory log. In-memory settings and filter selections
// keep their current values until the next mount.
func (w *Widget) DeleteHistoryAll() {
	w.mu.Lock()
	w.messages = nil
	w.mu.Unlock()
	w.deleteRecords(recMessages, recSettings, recTTSMuted, recFilters, recBgImage, recAvatar)
}

// Send submits the current input and attachment as a user message and
// hands the payload to the host's OnSend callback, reporting whether a
// send actually happened. Empty input with no attachment is a no-op. The
// callback runs outside the widget lock, so a host replying synchronously
// through AddMessages is fine.
func (w *Widget) Send() bool {
	w.mu.Lock()
	text := strings.TrimSpace(w.input)
	img := w.attachmentB64
	if text == "" && img == "" {
		w.mu.Unlock()
		return false
	}

	msg := Message{Type: TypeUser, Content: text, CreatedAt: time.Now().UnixMilli()}
	if img != "" {
		msg.Images = []string{img}
	}
	w.messages = append(w.messages, msg)

	w.input = ""
	w.attachmentB64 = ""
	w.showSettings = false

	args := SendArgs{Text: text, IsImage: img != "", Settings: w.settingsSnapshotLocked()}
	w.mu.Unlock()

	w.persistAll()
	w.maybeAutoscroll()
	w.opts.OnSend(args)
	return true
}

// SpeakLast replays the most recent bot message with content through
// speech output. Respects the mute state.
func (w *Widget) SpeakLast() {
	w.mu.Lock()
	var text string
	for i := len(w.messages) - 1; i >= 0; i-- {
		if w.messages[i].speakable() {
			text = w.messages[i].Content
			break
		}
	}
	w.mu.Unlock()

	if text != "" {
		w.speaker.Speak(text)
	}
}

// Messages returns a copy of the full ordered log.
func (w *Widget) Messages() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Message(nil), w.messages...)
}

// VisibleMessages returns the log filtered through the current filter
// selections.
func (w *Widget) VisibleMessages() []Message {
	w.mu.Lock()
	msgs := append([]Message(nil), w.messages...)
	state := w.filterStateSnapshotLocked()
	w.mu.Unlock()
	return applyFilters(msgs, w.opts.Filters, state)
}

// SetInput replaces the draft input text.
func (w *Widget) SetInput(text string) {
	w.mu.Lock()
	w.input = text
	w.mu.Unlock()
}

// Input returns the current draft input text.
func (w *Widget) Input() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input
}

// SetUserInput programmatically fills the input field. A repeated call
// with the same key is ignored, so hosts can forward the same external
// event more than once without duplicating the draft.
func (w *Widget) SetUserInput(key, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if key != "" && key == w.lastInputKey {
		return
	}
	w.lastInputKey = key
	w.input = text
}

// Attach encodes raw image bytes through the attachment pipeline and
// stages the result for the next Send.
func (w *Widget) Attach(data []byte) error {
	b64, err := attachment.Encode(data, w.opts.Attachment)
	if err != nil {
		w.logger.WithError(err).Warn("Failed to encode attachment")
		return err
	}

	w.mu.Lock()
	w.attachmentB64 = b64
	w.mu.Unlock()
	return nil
}

// ClearAttachment discards the staged attachment.
func (w *Widget) ClearAttachment() {
	w.mu.Lock()
	w.attachmentB64 = ""
	w.mu.Unlock()
}

// Attachment returns the staged attachment as a base64 payload, empty
// when none is staged.
func (w *Widget) Attachment() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attachmentB64
}

// ToggleRecord flips speech input. Starting a recording silences speech
// output first; see stt.Bridge for the stop semantics.
func (w *Widget) ToggleRecord(ctx context.Context) {
	w.bridge.Toggle(ctx)
}

// Recording reports whether speech input is active.
func (w *Widget) Recording() bool {
	return w.bridge.Recording()
}

// SetMuted flips speech output and persists the choice.
func (w *Widget) SetMuted(muted bool) {
	w.speaker.SetMuted(muted)
	w.persistAll()
}

// Muted reports the speech output mute state.
func (w *Widget) Muted() bool {
	return w.speaker.Muted()
}

// SetSetting stores one settings value and persists the snapshot. Values
// are stored as given; typed reads go through the Get* accessors.
func (w *Widget) SetSetting(id string, value any) {
	w.mu.Lock()
	if w.settings == nil {
		w.settings = Settings{}
	}
	w.settings[id] = value
	w.mu.Unlock()
	w.persistAll()
}

// GetSettings returns a copy of the full settings map.
func (w *Widget) GetSettings() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settingsSnapshotLocked()
}

// ToggleSettings flips the settings panel visibility and reports the new
// state.
func (w *Widget) ToggleSettings() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.showSettings = !w.showSettings
	return w.showSettings
}

// SettingsVisible reports whether the settings panel is open.
func (w *Widget) SettingsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.showSettings
}

// SetFilter replaces one filter's selection and persists the state.
func (w *Widget) SetFilter(id string, value FilterValue) {
	w.mu.Lock()
	if w.filterState == nil {
		w.filterState = FilterState{}
	}
	w.filterState[id] = value
	w.mu.Unlock()
	w.persistAll()
}

// FilterSelection returns the current selection of one filter.
func (w *Widget) FilterSelection(id string) FilterValue {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.filterState[id]
}

// SaveBackground stores a chat background image under its own record,
// independent of the message log.
func (w *Widget) SaveBackground(ctx context.Context, data []byte) error {
	return w.saveImageRecord(ctx, recBgImage, data)
}

// SaveAvatar stores the user avatar image under its own record.
func (w *Widget) SaveAvatar(ctx context.Context, data []byte) error {
	return w.saveImageRecord(ctx, recAvatar, data)
}

// Background returns the persisted background image as a data URI, empty
// when none is stored.
func (w *Widget) Background(ctx context.Context) string {
	return w.imageRecord(ctx, recBgImage)
}

// Avatar returns the persisted avatar image as a data URI.
func (w *Widget) Avatar(ctx context.Context) string {
	return w.imageRecord(ctx, recAvatar)
}

func (w *Widget) saveImageRecord(ctx context.Context, record string, data []byte) error {
	b64, err := attachment.Encode(data, w.opts.Attachment)
	if err != nil {
		return err
	}
	if !w.persistEnabled() {
		return nil
	}
	return w.opts.Store.Set(ctx, w.key(record), []byte(b64))
}

func (w *Widget) imageRecord(ctx context.Context, record string) string {
	if !w.persistEnabled() {
		return ""
	}
	raw, found, err := w.opts.Store.Get(ctx, w.key(record))
	if err != nil || !found {
		return ""
	}
	return attachment.DataURI(string(raw))
}

func (w *Widget) settingsSnapshotLocked() Settings {
	out := make(Settings, len(w.settings))
	for k, v := range w.settings {
		out[k] = v
	}
	return out
}

func (w *Widget) filterStateSnapshotLocked() FilterState {
	out := make(FilterState, len(w.filterState))
	for k, v := range w.filterState {
		out[k] = v
	}
	return out
}
