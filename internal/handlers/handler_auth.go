package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/dto"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
	"github.com/mzwallet/mz_wallet_backend/internal/platform/config"
)

// authHandler handles OTP issuance and phone login.
type authHandler struct {
	authService portssvc.AuthSvcFacade
}

func newAuthHandler(as portssvc.AuthSvcFacade) *authHandler {
	return &authHandler{authService: as}
}

// registerAuthRoutes sets up the public authentication routes. OTP issuance
// is rate limited per IP so one caller cannot flood the delivery channel.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, authService portssvc.AuthSvcFacade) {
	h := newAuthHandler(authService)

	rate, err := limiter.NewRateFromFormatted(cfg.OTPRateLimit)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted("5-M")
	}
	ipLimiter := limiter.New(memory.NewStore(), rate)

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/otp", middleware.RateLimit(ipLimiter), h.requestOTP)
		auth.POST("/login", h.login)
	}
}

// requestOTP issues a one-time code for a phone, creating the account when
// the number is unknown. The response is identical either way so the
// endpoint cannot be used to discover which phones are registered.
func (h *authHandler) requestOTP(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.authService.RequestOTP(c.Request.Context(), req.Phone); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("otp challenge issued")
	c.JSON(http.StatusOK, dto.OTPResponse{Sent: true})
}

// login exchanges a verified OTP for a bearer token.
func (h *authHandler) login(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	token, err := h.authService.LoginWithOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("login succeeded", slog.String("phone", req.Phone))
	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}
