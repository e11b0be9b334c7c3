package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/kanflow/movedigest/internal/api/middleware"
	"github.com/kanflow/movedigest/internal/domain"
)

// Queuer is implemented by service.MoveNotifier.
type Queuer interface {
	QueueMoveNotifications(ctx context.Context, move domain.MoveEvent) error
}

// CardMoveHandler receives move events from the board service.
type CardMoveHandler struct {
	queuer    Queuer
	validator *Validator
	logger    *zap.Logger
}

func NewCardMoveHandler(queuer Queuer, v *Validator, logger *zap.Logger) *CardMoveHandler {
	return &CardMoveHandler{queuer: queuer, validator: v, logger: logger}
}

// Create handles POST /api/internal/card-moves.
//
// The move has already happened by the time this is called, so a failure to
// queue notifications is logged and still answered 202.
func (h *CardMoveHandler) Create(w http.ResponseWriter, r *http.Request) {
	var move domain.MoveEvent
	if err := json.NewDecoder(r.Body).Decode(&move); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validator.Validate(&move); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  domain.ErrInvalidMove.Error(),
				"fields": verr.Fields,
			})
			return
		}
		mapError(w, err)
		return
	}

	if err := h.queuer.QueueMoveNotifications(r.Context(), move); err != nil {
		h.logger.Warn("queue card move notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Int64("card_id", move.CardID),
			zap.Error(err),
		)
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
