package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/dto"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
)

// walletHandler serves the authenticated customer wallet surface.
type walletHandler struct {
	ledgerService portssvc.LedgerSvcFacade
	authService   portssvc.AuthSvcFacade
}

func newWalletHandler(ls portssvc.LedgerSvcFacade, as portssvc.AuthSvcFacade) *walletHandler {
	return &walletHandler{ledgerService: ls, authService: as}
}

// RegisterWalletRoutes registers wallet routes on the authenticated group.
func RegisterWalletRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade, authService portssvc.AuthSvcFacade) {
	h := newWalletHandler(ledgerService, authService)

	wallet := rg.Group("/wallet")
	{
		wallet.GET("/balance", h.balance)
		wallet.POST("/transfer", h.transfer)
		wallet.POST("/pay", h.pay)
		wallet.GET("/statement", h.statement)
		wallet.GET("/history", h.history)
		wallet.POST("/pin", h.changePIN)
	}
}

func (h *walletHandler) balance(c *gin.Context) {
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	account, err := h.ledgerService.Balance(c.Request.Context(), phone)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.BalanceResponse{Balance: account.Balance}
	if account.Role == domain.RoleAgent {
		fb := account.FloatBalance
		resp.FloatBalance = &fb
	}
	c.JSON(http.StatusOK, resp)
}

// transfer moves funds from the authenticated account to a receiver phone.
// The X-Idempotency-Key header takes precedence over the body field.
func (h *walletHandler) transfer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")
	if idemKey == "" {
		idemKey = req.IdempotencyKey
	}

	tx, err := h.ledgerService.Transfer(c.Request.Context(), phone, req.Receiver, req.Amount, req.PIN, idemKey)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("transfer committed", slog.String("ref", tx.Ref))
	c.JSON(http.StatusOK, dto.TransferResponse{Ref: tx.Ref, Amount: tx.Amount})
}

// pay settles a service or bill payment from the authenticated account.
// The X-Idempotency-Key header takes precedence over the body field.
func (h *walletHandler) pay(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key")
	if idemKey == "" {
		idemKey = req.IdempotencyKey
	}

	tx, err := h.ledgerService.Pay(c.Request.Context(), phone, req.Service, req.Amount, req.PIN, idemKey)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("payment committed", slog.String("ref", tx.Ref), slog.String("service", req.Service))
	c.JSON(http.StatusOK, dto.PaymentResponse{Ref: tx.Ref, Service: req.Service, Amount: tx.Amount})
}

func (h *walletHandler) statement(c *gin.Context) {
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.ledgerService.Statement(c.Request.Context(), phone, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.StatementItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.StatementItem{
			Ref:          e.TransactionRef,
			Direction:    string(e.Direction),
			BalanceKind:  string(e.BalanceKind),
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			CreatedAt:    e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, dto.StatementResponse{Items: items, Count: len(items)})
}

func (h *walletHandler) history(c *gin.Context) {
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	account, txs, err := h.ledgerService.History(c.Request.Context(), phone, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.HistoryItem, 0, len(txs))
	for _, tx := range txs {
		direction := "IN"
		if tx.FromAccountID != nil && *tx.FromAccountID == account.AccountID {
			direction = "OUT"
		}
		items = append(items, dto.HistoryItem{
			Ref:       tx.Ref,
			Type:      string(tx.Type),
			Direction: direction,
			Amount:    tx.Amount,
			CreatedAt: tx.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, dto.HistoryResponse{Items: items})
}

func (h *walletHandler) changePIN(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	phone, ok := middleware.GetPhoneFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req dto.ChangePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.authService.ChangePIN(c.Request.Context(), phone, req.CurrentPIN, req.NewPIN); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("pin changed")
	c.Status(http.StatusNoContent)
}
