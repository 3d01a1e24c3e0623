package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backchannel/domain"
	"backchannel/projection"
)

// History serves the synchronous history query. One endpoint covers all
// four read shapes:
//   - the channel owner (verified token) gets the full moderation backlog;
//   - a viewer passing their anonUserId gets approved history merged with
//     their own pending messages;
//   - a cursor requests the page of approved messages before it;
//   - otherwise the latest approved history is returned.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channel, err := h.channels.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	switch {
	case UserID(r) != "" && UserID(r) == channel.OwnerID:
		messages, err := h.history.OwnerView(ctx, channel.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fullFeed(messages))
	case query.Get("anonUserId") != "":
		messages, err := h.history.AnonymousView(ctx, channel.ID, query.Get("anonUserId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fullFeed(messages))
	case query.Get("cursor") != "":
		page, err := h.history.PageBefore(ctx, channel.ID, query.Get("cursor"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	default:
		page, err := h.history.InitialHistory(ctx, channel.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// fullFeed wraps an unpaginated view in the common response shape.
func fullFeed(messages []domain.MessageWithIdentity) projection.Page {
	if messages == nil {
		messages = []domain.MessageWithIdentity{}
	}
	return projection.Page{Messages: messages, HasMore: false}
}
