package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"backchannel/domain"
	"backchannel/errors"
)

type createChannelRequest struct {
	Name string `json:"name" validate:"required"`
}

type updateChannelRequest struct {
	Status domain.ChannelStatus `json:"status" validate:"required,oneof=open closed"`
}

func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	channel, err := h.channels.Create(r.Context(), UserID(r), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channels.ListByOwner(r.Context(), UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *Handler) GetChannel(w http.ResponseWriter, r *http.Request) {
	channel, err := h.channels.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

// LookupChannel resolves a share code typed by an audience member.
func (h *Handler) LookupChannel(w http.ResponseWriter, r *http.Request) {
	channel, err := h.channels.Lookup(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

// UpdateChannel opens or closes a channel and announces the transition to
// the live room.
func (h *Handler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	var req updateChannelRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	channel, err := h.channels.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status, UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.bus.AnnounceStatus(channel)
	writeJSON(w, http.StatusOK, channel)
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, errors.Validation(errors.CodeEmptyContent, "Malformed request body"))
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		writeError(w, errors.Validation(errors.CodeEmptyContent, "Missing or invalid request fields"))
		return false
	}
	return true
}
