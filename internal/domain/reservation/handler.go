package reservation

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esports-scheduler/internal/domain/user"
	"esports-scheduler/internal/notify"
	"esports-scheduler/internal/obs"
	"esports-scheduler/internal/pkg/response"
	"esports-scheduler/internal/pkg/validator"
)

type Handler struct {
	service    *Service
	subscriber notify.Subscriber
	keepalive  time.Duration
	metrics    *obs.Metrics
	log        *zap.Logger
}

func NewHandler(service *Service, subscriber notify.Subscriber, keepalive time.Duration, metrics *obs.Metrics, logger *zap.Logger) *Handler {
	if keepalive <= 0 {
		keepalive = 25 * time.Second
	}
	return &Handler{
		service:    service,
		subscriber: subscriber,
		keepalive:  keepalive,
		metrics:    metrics,
		log:        logger,
	}
}

func callerFrom(c *gin.Context) Caller {
	return Caller{
		ID:      c.GetString("user_id"),
		IsAdmin: c.GetString("role") == user.RoleAdmin,
	}
}

// List returns raw rows, or group views when grouped=1.
func (h *Handler) List(c *gin.Context) {
	f, err := parseFilter(c.Request.URL.Query())
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if isTruthy(c.Query("grouped")) {
		groups, err := h.service.ListGrouped(c.Request.Context(), f)
		if err != nil {
			h.writeError(c, "list grouped", err)
			return
		}
		response.OK(c, gin.H{"groups": groups})
		return
	}

	rows, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.writeError(c, "list", err)
		return
	}
	response.OK(c, gin.H{"reservations": rows})
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid reservation payload", errs)
		return
	}

	g, err := h.service.Create(c.Request.Context(), callerFrom(c), req.input())
	if err != nil {
		h.writeError(c, "create", err)
		return
	}
	response.Created(c, gin.H{"group": g})
}

func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid reservation payload", errs)
		return
	}

	g, err := h.service.Update(c.Request.Context(), callerFrom(c), req.GroupID, req.input())
	if err != nil {
		h.writeError(c, "update", err)
		return
	}
	response.OK(c, gin.H{"group": g})
}

func (h *Handler) Delete(c *gin.Context) {
	groupID := strings.TrimSpace(c.Query("groupId"))

	n, err := h.service.Delete(c.Request.Context(), callerFrom(c), groupID)
	if err != nil {
		h.writeError(c, "delete", err)
		return
	}
	response.OK(c, deleteResponse{GroupID: groupID, Deleted: n})
}

// DeleteOne removes a single reservation row by id.
func (h *Handler) DeleteOne(c *gin.Context) {
	row, err := h.service.DeleteReservation(c.Request.Context(), callerFrom(c), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
		return
	}
	if err != nil {
		h.writeError(c, "delete row", err)
		return
	}
	groupID, _ := groupKey(*row)
	response.OK(c, gin.H{"id": row.ID, "groupId": groupID, "deleted": 1})
}

// Purge is called by the scheduler with the shared cron secret.
func (h *Handler) Purge(c *gin.Context) {
	var cutoff time.Time
	if raw := c.Query("cutoff"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "cutoff must be an RFC3339 timestamp")
			return
		}
		cutoff = parsed
	}
	dryRun := isTruthy(c.Query("dryRun"))

	res, err := h.service.Purge(c.Request.Context(), cutoff, dryRun)
	if err != nil {
		h.writeError(c, "purge", err)
		return
	}
	if dryRun {
		response.OK(c, dryRunResponse{DryRun: true, Cutoff: res.Cutoff, WouldDelete: res.Count})
		return
	}
	response.OK(c, purgeResponse{Cutoff: res.Cutoff, Deleted: res.Count})
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	var (
		verr *ValidationError
		berr *BlackoutConflictError
		cerr *BookingConflictError
	)

	switch {
	case errors.As(err, &verr):
		if len(verr.ComputerIDs) > 0 {
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message, gin.H{"computerIds": verr.ComputerIDs})
			return
		}
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message)
	case errors.As(err, &berr):
		response.ErrorWithDetails(c, http.StatusConflict, "BLACKOUT_CONFLICT", berr.Error(), gin.H{"blackoutId": berr.Window.ID})
	case errors.As(err, &cerr):
		response.ErrorWithDetails(c, http.StatusConflict, "BOOKING_CONFLICT", cerr.Error(), gin.H{"computers": cerr.Labels})
	case errors.Is(err, ErrConcurrentUpdate):
		response.Error(c, http.StatusConflict, "CONCURRENT_UPDATE", "Another change was in progress, please retry")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation group not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
	case errors.Is(err, ErrUnknownCaller):
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Your session is out of date, please sign in again")
	default:
		h.log.Error("reservation "+op+" failed", zap.Error(err))
		response.Internal(c)
	}
}
