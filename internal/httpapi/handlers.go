package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/s-home/messenger-go/internal/i18n"
	"github.com/s-home/messenger-go/pkg/messenger"
)

// attachments bigger than this are rejected before decoding
const maxUploadBytes = 16 << 20

func (a *API) handleListMessages(w http.ResponseWriter, req *http.Request) {
	var msgs []messenger.Message
	if req.URL.Query().Get("all") == "true" {
		msgs = a.widget.Messages()
	} else {
		msgs = a.widget.VisibleMessages()
	}
	a.writeJSON(w, http.StatusOK, msgs)
}

func (a *API) handleAddMessages(w http.ResponseWriter, req *http.Request) {
	var msgs []messenger.Message
	if err := json.NewDecoder(req.Body).Decode(&msgs); err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	a.widget.AddMessages(msgs...)
	for _, m := range msgs {
		a.metrics.RecordMessageAdded(m.Type)
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleUpdateMessage(w http.ResponseWriter, req *http.Request) {
	key := mux.Vars(req)["key"]
	var patch messenger.MessagePatch
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	a.widget.UpdateMessage(key, patch)
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleRemoveMessage(w http.ResponseWriter, req *http.Request) {
	a.widget.RemoveMessage(mux.Vars(req)["key"])
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleClear(w http.ResponseWriter, req *http.Request) {
	a.widget.Clear()
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleDeleteHistory(w http.ResponseWriter, req *http.Request) {
	a.widget.DeleteHistoryAll()
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleGetInput(w http.ResponseWriter, req *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"input": a.widget.Input()})
}

func (a *API) handleSetInput(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Input string `json:"input"`
		Key   string `json:"key"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	if err := a.security.ValidateInput(body.Input); err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	if body.Key != "" {
		a.widget.SetUserInput(body.Key, body.Input)
	} else {
		a.widget.SetInput(body.Input)
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleSend(w http.ResponseWriter, req *http.Request) {
	kind := "text"
	if a.widget.Attachment() != "" {
		kind = "image"
	}
	if a.widget.Send() {
		a.metrics.RecordSend(kind)
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleGetSettings(w http.ResponseWriter, req *http.Request) {
	a.writeJSON(w, http.StatusOK, a.widget.GetSettings())
}

func (a *API) handleSetSetting(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	a.widget.SetSetting(mux.Vars(req)["id"], body.Value)
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleSetFilter(w http.ResponseWriter, req *http.Request) {
	var value messenger.FilterValue
	if err := json.NewDecoder(req.Body).Decode(&value); err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	a.widget.SetFilter(mux.Vars(req)["id"], value)
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleSetMute(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Muted bool `json:"muted"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	a.widget.SetMuted(body.Muted)
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleReplay(w http.ResponseWriter, req *http.Request) {
	a.widget.SpeakLast()
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleToggleRecord(w http.ResponseWriter, req *http.Request) {
	a.widget.ToggleRecord(req.Context())
	started := a.widget.Recording()
	a.metrics.RecordDictationToggle(started)
	a.writeJSON(w, http.StatusOK, map[string]bool{"recording": started})
}

func (a *API) handleAttach(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(io.LimitReader(req.Body, maxUploadBytes))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}

	start := time.Now()
	if err := a.widget.Attach(data); err != nil {
		a.metrics.RecordAttachmentEncode("error", time.Since(start))
		a.writeError(w, http.StatusUnprocessableEntity, i18n.MsgAttachmentFailed, req)
		return
	}
	a.metrics.RecordAttachmentEncode("ok", time.Since(start))
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleClearAttachment(w http.ResponseWriter, req *http.Request) {
	a.widget.ClearAttachment()
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleSaveBackground(w http.ResponseWriter, req *http.Request) {
	a.saveImage(w, req, a.widget.SaveBackground)
}

func (a *API) handleSaveAvatar(w http.ResponseWriter, req *http.Request) {
	a.saveImage(w, req, a.widget.SaveAvatar)
}

func (a *API) saveImage(w http.ResponseWriter, req *http.Request, save func(ctx context.Context, data []byte) error) {
	data, err := io.ReadAll(io.LimitReader(req.Body, maxUploadBytes))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, i18n.MsgError, req)
		return
	}
	if err := save(req.Context(), data); err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, i18n.MsgAttachmentFailed, req)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}
