package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billing-api/internal/domain"
	"billing-api/internal/service"
)

// UserHandler mantiene dependencias para endpoints de cuentas.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register maneja POST /register.
func (h *UserHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "register failed", err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, user)
}

// Login maneja POST /login.
func (h *UserHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login failed", err)
		return
	}
	h.respondWithToken(c, http.StatusOK, user)
}

// Logout maneja POST /logout. Si llega un bearer valido se revoca; la respuesta es
// siempre exitosa.
func (h *UserHandler) Logout(c *gin.Context) {
	if token, ok := bearerToken(c); ok && h.jwtServ != nil {
		claims, err := h.jwtServ.ParseAccessToken(token)
		if err == nil {
			if err := h.jwtServ.Revoke(claims); err != nil {
				h.logger.Warn("token revoke failed", zap.Error(err), zap.String("user_id", claims.UserID))
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me maneja GET /me.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	user, err := h.userServ.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, "load user failed", err)
		return
	}
	c.JSON(http.StatusOK, userView(user))
}

func (h *UserHandler) respondWithToken(c *gin.Context, status int, user domain.User) {
	token, err := h.jwtServ.IssueAccessToken(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(status, gin.H{
		"success": true,
		"token":   token.Token,
		"user":    userView(user),
	})
}

func userView(user domain.User) gin.H {
	return gin.H{
		"email":        user.Email,
		"isSubscribed": user.IsSubscribed(),
	}
}
