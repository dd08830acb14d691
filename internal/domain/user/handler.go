package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"esports-scheduler/internal/pkg/jwt"
	"esports-scheduler/internal/pkg/response"
	"esports-scheduler/internal/pkg/validator"
)

type Handler struct {
	repo Repository
	jwt  *jwt.Service
	log  *zap.Logger
}

func NewHandler(repo Repository, jwtSvc *jwt.Service, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwtSvc, log: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login exchanges seeded credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid login payload", errs)
		return
	}

	u, err := h.authenticate(c, req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if err != nil {
		h.log.Error("login lookup", zap.Error(err))
		response.Internal(c)
		return
	}

	token, err := h.jwt.GenerateToken(u.ID, u.Role)
	if err != nil {
		h.log.Error("sign token", zap.String("user_id", u.ID), zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, loginResponse{Token: token, User: u})
}

func (h *Handler) authenticate(c *gin.Context, email, password string) (*User, error) {
	u, err := h.repo.GetByEmail(c.Request.Context(), email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (h *Handler) RegisterRoutes(public *gin.RouterGroup) {
	public.POST("/auth/login", h.Login)
}
