package gate

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/FrontGate/FrontGate/pkg/common"
	"github.com/badoux/checkmail"
)

type authorizeRequest struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type authorizeResponse struct {
	Authorized bool `json:"authorized"`
}

// handleAuthorize is the human-facing approval step: it upserts the visitor
// with the reviewed name and email and flips authorized on. Idempotent.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.WarnContext(ctx, "Failed to decode authorize request", common.ErrAttr(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if (len(req.Identity) == 0) || (len(req.Name) == 0) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := checkmail.ValidateFormat(req.Email); err != nil {
		slog.WarnContext(ctx, "Rejecting invalid visitor email", common.ErrAttr(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := s.Visitors.AuthorizeVisitor(ctx, req.Identity, req.Name, req.Email); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	common.SendJSONResponse(ctx, w, &authorizeResponse{Authorized: true}, map[string]string{})
}
