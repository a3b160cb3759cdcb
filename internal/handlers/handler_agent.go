package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/dto"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
)

// agentHandler serves the agent cash-in/cash-out surface and the admin
// agent-seeding endpoint.
type agentHandler struct {
	ledgerService portssvc.LedgerSvcFacade
	authService   portssvc.AuthSvcFacade
}

func newAgentHandler(ls portssvc.LedgerSvcFacade, as portssvc.AuthSvcFacade) *agentHandler {
	return &agentHandler{ledgerService: ls, authService: as}
}

// RegisterAgentRoutes registers agent routes on the authenticated group.
// Role checks happen in the service layer; the seed endpoint additionally
// requires the caller to be an admin.
func RegisterAgentRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, authService portssvc.AuthSvcFacade) {
	h := newAgentHandler(ledgerService, authService)

	agent := rg.Group("/agent")
	{
		agent.POST("/deposit", h.deposit)
		agent.POST("/cashout", h.cashout)
		agent.POST("/seed", h.seedAgent)
	}
}

// deposit moves funds from the authenticated agent's e-float into a
// customer's balance.
func (h *agentHandler) deposit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")
	if idemKey == "" {
		idemKey = req.IdempotencyKey
	}

	tx, err := h.ledgerService.AgentDeposit(c.Request.Context(), phone, req.CustomerPhone, req.Amount, idemKey)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("deposit committed", slog.String("ref", tx.Ref))
	c.JSON(http.StatusOK, dto.DepositResponse{Ref: tx.Ref, Amount: tx.Amount})
}

// cashout debits the customer amount plus fee and credits the agent's
// e-float with the principal and the agent's share of the fee.
func (h *agentHandler) cashout(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")
	if idemKey == "" {
		idemKey = req.IdempotencyKey
	}

	resp, err := h.ledgerService.AgentCashout(c.Request.Context(), phone, req.CustomerPhone, req.Amount, idemKey)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("cashout committed", slog.String("ref", resp.Ref))
	c.JSON(http.StatusOK, resp)
}

// seedAgent promotes an account to AGENT with a PIN and starting float.
// Admin only.
func (h *agentHandler) seedAgent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	caller, err := h.ledgerService.Balance(c.Request.Context(), phone)
	if err != nil {
		respondError(c, err)
		return
	}
	if caller.Role != domain.RoleAdmin {
		logger.Warn("non-admin attempted agent seeding")
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Forbidden"})
		return
	}

	var req dto.SeedAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.authService.SeedAgent(c.Request.Context(), req.Phone, req.PIN, req.FloatAmount); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("agent seeded", slog.String("phone", req.Phone))
	c.Status(http.StatusNoContent)
}
