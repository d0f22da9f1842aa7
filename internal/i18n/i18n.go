package i18n

import (
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/s-home/messenger-go/internal/config"
)

// Localizer manages the widget's UI strings
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load language files
	for _, lang := range cfg.Languages {
		if _, err := bundle.LoadMessageFile(fmt.Sprintf("configs/i18n/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}
	if localizer == nil {
		return messageID
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgInputPlaceholder  = "input_placeholder"
	MsgSendButton        = "send_button"
	MsgBotLabel          = "bot_label"
	MsgUserLabel         = "user_label"
	MsgSettingsTitle     = "settings_title"
	MsgHistoryCleared    = "history_cleared"
	MsgRecordingStarted  = "recording_started"
	MsgRecordingStopped  = "recording_stopped"
	MsgSpeechUnsupported = "speech_unsupported"
	MsgMuteOn            = "mute_on"
	MsgMuteOff           = "mute_off"
	MsgAttachmentFailed  = "attachment_failed"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgError             = "error"
)
