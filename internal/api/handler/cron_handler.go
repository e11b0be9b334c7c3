package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/kanflow/movedigest/internal/api/middleware"
	"github.com/kanflow/movedigest/internal/domain"
)

// Dispatcher is implemented by service.DigestDispatcher.
type Dispatcher interface {
	DispatchDueDigests(ctx context.Context, now time.Time) (domain.DispatchResult, error)
}

type cronResponse struct {
	Success    bool `json:"success"`
	Sent       int  `json:"sent"`
	Recipients int  `json:"recipients"`
}

// CronHandler exposes the digest dispatcher to an external scheduler.
type CronHandler struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewCronHandler(dispatcher Dispatcher, logger *zap.Logger) *CronHandler {
	return &CronHandler{dispatcher: dispatcher, logger: logger, now: time.Now}
}

// ProcessCardMoveEmails handles POST /api/cron/process-card-move-emails.
// Method and bearer checks run in middleware before this handler.
func (h *CronHandler) ProcessCardMoveEmails(w http.ResponseWriter, r *http.Request) {
	result, err := h.dispatcher.DispatchDueDigests(r.Context(), h.now())
	if err != nil {
		h.logger.Error("process card move emails failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		apimw.RespondFailure(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, cronResponse{
		Success:    true,
		Sent:       result.Sent,
		Recipients: result.Recipients,
	})
}
