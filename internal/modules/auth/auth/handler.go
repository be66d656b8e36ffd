package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-cms/inkwell/internal/middleware"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
)

type Handler struct {
	svc     *Service
	cookies *CookieHelper
}

func NewHandler(svc *Service, cookies *CookieHelper) *Handler {
	return &Handler{svc: svc, cookies: cookies}
}

// RegisterRoutes mounts /auth. authMW guards the endpoints that need a
// signed-in user and csrf runs after it on their writes; limit throttles the
// credential endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, csrf, limit gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/login", limit, h.login)
	a.POST("/logout", authMW, csrf, h.logout)
	a.POST("/register", limit, h.register)
	a.POST("/password/forgot", limit, h.forgotPassword)
	a.POST("/password/reset", limit, h.resetPassword)
	a.GET("/verify-email", h.verifyEmail)
	a.POST("/verify-email", h.verifyEmail)
	a.POST("/verify-email/resend", authMW, csrf, limit, h.resendVerification)

	s := a.Group("/sessions", authMW, csrf)
	s.GET("", h.listSessions)
	s.DELETE("", h.revokeOtherSessions)
	s.DELETE("/:id", h.revokeSession)
}

// login POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.Login(c.Request.Context(), dto.Login, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		apperr.Write(c, err)
		return
	}
	if dto.Remember {
		h.cookies.Set(c, res.Token, res.ExpiresAt)
	}
	response.OK(c, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: toUserResponse(res.User)})
}

// logout POST /auth/logout
func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentSessionID(c)); err != nil {
		apperr.Write(c, err)
		return
	}
	h.cookies.Clear(c)
	response.NoContent(c)
}

// register POST /auth/register
func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), &dto)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.Created(c, toUserResponse(u))
}

// forgotPassword POST /auth/password/forgot
func (h *Handler) forgotPassword(c *gin.Context) {
	var dto ForgotPasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), dto.Email); err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the address is registered, a reset link is on its way"})
}

// resetPassword POST /auth/password/reset
func (h *Handler) resetPassword(c *gin.Context) {
	var dto ResetPasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), dto.Token, dto.Password); err != nil {
		apperr.Write(c, err)
		return
	}
	h.cookies.Clear(c)
	response.NoContent(c)
}

// verifyEmail GET|POST /auth/verify-email
func (h *Handler) verifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" && c.Request.Method == http.MethodPost {
		var dto VerifyEmailDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		token = dto.Token
	}
	if token == "" {
		response.BadRequest(c, "token is required")
		return
	}
	u, err := h.svc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	response.OK(c, toUserResponse(u))
}

// resendVerification POST /auth/verify-email/resend
func (h *Handler) resendVerification(c *gin.Context) {
	if err := h.svc.ResendVerification(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}

// listSessions GET /auth/sessions
func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.svc.Sessions(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	current := middleware.CurrentSessionID(c)
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID: s.ID, IP: s.IP, UA: s.UA, Date: s.UpdatedAt, ExpiresAt: s.ExpiresAt,
			Current: s.ID == current,
		})
	}
	response.OK(c, out)
}

// revokeSession DELETE /auth/sessions/:id
func (h *Handler) revokeSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.RevokeSession(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		apperr.Write(c, err)
		return
	}
	if id == middleware.CurrentSessionID(c) {
		h.cookies.Clear(c)
	}
	response.NoContent(c)
}

// revokeOtherSessions DELETE /auth/sessions
func (h *Handler) revokeOtherSessions(c *gin.Context) {
	if err := h.svc.RevokeOtherSessions(c.Request.Context(), middleware.CurrentUserID(c), middleware.CurrentSessionID(c)); err != nil {
		apperr.Write(c, err)
		return
	}
	response.NoContent(c)
}
