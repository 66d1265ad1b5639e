package gate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/FrontGate/FrontGate/pkg/common"
)

const (
	reasonNotRecognized = "code not recognized"
	reasonExpired       = "code expired"
)

type validateRequest struct {
	Code string `json:"code"`
}

type validateResponse struct {
	Granted bool   `json:"granted"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// handleValidate resolves a submitted access code to a visitor and confirms
// the open-door decision. An unrecognized code is a normal denial, never a
// fault.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.WarnContext(ctx, "Failed to decode validate request", common.ErrAttr(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	record, err := s.Passcodes.LookupPasscode(ctx, req.Code)
	if err != nil {
		if err == common.ErrRecordNotFound {
			common.SendJSONResponse(ctx, w, &validateResponse{Granted: false, Reason: reasonNotRecognized}, map[string]string{})
			return
		}

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if (s.PasscodeTTL > 0) && (s.now().Sub(record.IssuedAt) > s.PasscodeTTL) {
		common.SendJSONResponse(ctx, w, &validateResponse{Granted: false, Reason: reasonExpired}, map[string]string{})
		return
	}

	visitor, err := s.Visitors.GetVisitor(ctx, record.VisitorIdentity)
	if err != nil {
		if err == common.ErrRecordNotFound {
			slog.ErrorContext(ctx, "Passcode points at a missing visitor", "identity", record.VisitorIdentity)
			common.SendJSONResponse(ctx, w, &validateResponse{Granted: false, Reason: reasonNotRecognized}, map[string]string{})
			return
		}

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if s.PasscodeSingleUse {
		if err := s.Passcodes.DeletePasscode(ctx, req.Code); err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	slog.InfoContext(ctx, "Validated access code", "identity", record.VisitorIdentity)

	common.SendJSONResponse(ctx, w, &validateResponse{
		Granted: true,
		Message: fmt.Sprintf("Hi, %s. Door is open.", visitor.Name),
	}, map[string]string{})
}
