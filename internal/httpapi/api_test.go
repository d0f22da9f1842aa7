package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-home/messenger-go/internal/config"
	"github.com/s-home/messenger-go/internal/i18n"
	"github.com/s-home/messenger-go/internal/middleware"
	"github.com/s-home/messenger-go/pkg/kvstore"
	"github.com/s-home/messenger-go/pkg/messenger"
)

func newTestAPI(t *testing.T, onSend func(messenger.SendArgs)) (*API, *messenger.Widget) {
	t.Helper()

	if onSend == nil {
		onSend = func(messenger.SendArgs) {}
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	w, err := messenger.New(messenger.Options{
		OnSend:     onSend,
		Persist:    true,
		Store:      kvstore.NewMemoryStore(),
		StorageKey: "api",
		Logger:     logger,
	})
	require.NoError(t, err)
	require.NoError(t, w.Mount(context.Background()))

	cfg := &config.Config{}
	cfg.I18n.DefaultLanguage = "en"

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	require.NoError(t, err)

	api := NewAPI(
		cfg,
		w,
		middleware.NewRateLimiter(cfg, logger), // disabled, allows everything
		middleware.NewMetrics(),
		localizer,
		logger,
	)
	return api, w
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMessagesRoundTrip(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	router := api.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/messages", []messenger.Message{
		{ID: "m1", Type: messenger.TypeUser, Content: "hi"},
		{ID: "m2", Type: messenger.TypeBot, Content: "hello"},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []messenger.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestUpdateAndRemoveMessage(t *testing.T) {
	api, w := newTestAPI(t, nil)
	router := api.Router()

	doJSON(t, router, http.MethodPost, "/api/messages", []messenger.Message{
		{ID: "m1", Type: messenger.TypeBot, Content: "..."},
	})

	rec := doJSON(t, router, http.MethodPatch, "/api/messages/m1", map[string]string{"content": "done"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, w.Messages(), 1)
	assert.Equal(t, "done", w.Messages()[0].Content)

	rec = doJSON(t, router, http.MethodDelete, "/api/messages/m1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, w.Messages())
}

func TestSendThroughAPI(t *testing.T) {
	var sent []messenger.SendArgs
	api, _ := newTestAPI(t, func(args messenger.SendArgs) { sent = append(sent, args) })
	router := api.Router()

	rec := doJSON(t, router, http.MethodPut, "/api/input", map[string]string{"input": "from http"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/send", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, sent, 1)
	assert.Equal(t, "from http", sent[0].Text)
}

func TestSendWithEmptyInputIsNoop(t *testing.T) {
	called := false
	api, w := newTestAPI(t, func(messenger.SendArgs) { called = true })

	rec := doJSON(t, api.Router(), http.MethodPost, "/api/send", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
	assert.Empty(t, w.Messages())
}

func TestSetInputRejectsOversize(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	router := api.Router()

	rec := doJSON(t, router, http.MethodPut, "/api/input", map[string]string{
		"input": strings.Repeat("x", 5000),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	api, w := newTestAPI(t, nil)
	router := api.Router()

	rec := doJSON(t, router, http.MethodPut, "/api/settings/steps", map[string]any{"value": 42.0})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 42.0, w.GetNumber("steps"))

	rec = doJSON(t, router, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settings map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, 42.0, settings["steps"])
}

func TestMuteEndpoint(t *testing.T) {
	api, w := newTestAPI(t, nil)
	router := api.Router()

	rec := doJSON(t, router, http.MethodPut, "/api/speech/mute", map[string]bool{"muted": true})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, w.Muted())
}

func TestAttachmentRejectsGarbage(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	router := api.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/attachment", strings.NewReader("not an image"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	api, _ := newTestAPI(t, nil)
	rec := doJSON(t, api.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteHistory(t *testing.T) {
	api, w := newTestAPI(t, nil)
	router := api.Router()

	doJSON(t, router, http.MethodPost, "/api/messages", []messenger.Message{
		{ID: "m1", Type: messenger.TypeUser, Content: "x"},
	})
	rec := doJSON(t, router, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, w.Messages())
}
