package blackout

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esports-scheduler/internal/domain"
	"esports-scheduler/internal/pkg/response"
	"esports-scheduler/internal/pkg/validator"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, log: logger}
}

type createRequest struct {
	StartsAt   *time.Time `json:"startsAt" validate:"required"`
	EndsAt     *time.Time `json:"endsAt" validate:"required"`
	Scope      string     `json:"scope" validate:"required,oneof=ALL COMPUTER all computer"`
	ComputerID *int64     `json:"computerId" validate:"omitempty,gt=0"`
	Reason     string     `json:"reason"`
}

func (h *Handler) List(c *gin.Context) {
	var iv *domain.Interval
	if start, end := c.Query("start"), c.Query("end"); start != "" && end != "" {
		s, err1 := time.Parse(time.RFC3339, start)
		e, err2 := time.Parse(time.RFC3339, end)
		if err1 != nil || err2 != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "start and end must be RFC3339 timestamps")
			return
		}
		parsed, err := domain.NewInterval(s, e)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "start must be before end")
			return
		}
		iv = &parsed
	}

	windows, err := h.service.List(c.Request.Context(), iv)
	if err != nil {
		h.log.Error("list blackouts", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"blackouts": windows})
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid blackout payload", errs)
		return
	}

	w, err := h.service.Create(c.Request.Context(), CreateInput{
		StartsAt:   *req.StartsAt,
		EndsAt:     *req.EndsAt,
		Scope:      Scope(req.Scope),
		ComputerID: req.ComputerID,
		Reason:     req.Reason,
	})
	switch {
	case err == nil:
		response.Created(c, gin.H{"blackout": w})
	case errors.Is(err, domain.ErrInvalidInterval):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "startsAt must be before endsAt")
	case errors.Is(err, ErrInvalidScope):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrUnknownComputer):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "computerId does not exist")
	default:
		h.log.Error("create blackout", zap.Error(err))
		response.Internal(c)
	}
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid blackout id")
		return
	}

	err = h.service.Delete(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Blackout not found")
		return
	}
	if err != nil {
		h.log.Error("delete blackout", zap.Int64("blackout_id", id), zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"deleted": id})
}
