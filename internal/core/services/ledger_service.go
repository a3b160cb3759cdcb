package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portsrepo "github.com/mzwallet/mz_wallet_backend/internal/core/ports/repositories"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/dto"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
	"github.com/mzwallet/mz_wallet_backend/internal/utils"
)

// ledgerService is the money-movement engine. Every operation follows the
// same shape: idempotency check, precondition checks, atomic balance
// mutation with double-entry recording, commit. The store re-checks balances
// inside the same transaction that applies the debit, so concurrent
// operations cannot both pass a stale sufficiency check.
type ledgerService struct {
	accountRepo portsrepo.AccountRepository
	ledgerRepo  portsrepo.LedgerRepository
	authSvc     portssvc.AuthSvcFacade
	feePolicy   portssvc.FeePolicy
	audit       portssvc.AuditSink
	normalizer  *utils.PhoneNormalizer
	kycLimits   map[int]decimal.Decimal
	defaultPIN  string
}

// NewLedgerService creates the money-movement engine.
func NewLedgerService(
	accountRepo portsrepo.AccountRepository,
	ledgerRepo portsrepo.LedgerRepository,
	authSvc portssvc.AuthSvcFacade,
	feePolicy portssvc.FeePolicy,
	audit portssvc.AuditSink,
	normalizer *utils.PhoneNormalizer,
	kycLimits map[int]decimal.Decimal,
	defaultPIN string,
) portssvc.LedgerSvcFacade {
	return &ledgerService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		authSvc:     authSvc,
		feePolicy:   feePolicy,
		audit:       audit,
		normalizer:  normalizer,
		kycLimits:   kycLimits,
		defaultPIN:  defaultPIN,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// resolveRef picks the idempotency key for an operation. A caller-supplied
// key is authoritative. The derived fallback from (from, to, amount) carries
// no nonce, so two genuinely distinct but identical operations would collide
// on it: callers that need at-most-once across identical retries must supply
// their own key.
func resolveRef(supplied, prefix, fromID, toID string, amount decimal.Decimal) string {
	if supplied != "" {
		return supplied
	}
	return fmt.Sprintf("%s-%s-%s-%s", prefix, fromID, toID, amount.String())
}

// provisionReceiver creates a zero-balance customer account with the default
// credential when the receiver phone is unknown. Deliberate low-friction
// onboarding, not an error.
func (s *ledgerService) provisionReceiver(ctx context.Context, phone string, now time.Time) (*domain.Account, error) {
	hash, err := utils.HashPIN(s.defaultPIN)
	if err != nil {
		return nil, fmt.Errorf("failed to hash default credential: %w", err)
	}
	fresh := domain.Account{
		AccountID:      uuid.NewString(),
		Phone:          phone,
		Role:           domain.RoleCustomer,
		Balance:        decimal.Zero,
		FloatBalance:   decimal.Zero,
		CredentialHash: hash,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	account, err := s.accountRepo.EnsureAccount(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("failed to provision receiver: %w", err)
	}
	if account.AccountID == fresh.AccountID {
		s.audit.Record(ctx, domain.AuditEvent{AccountID: &account.AccountID, Action: "account_auto_provisioned"})
	}
	return account, nil
}

// committedReplay returns the committed transaction for a caller-supplied
// idempotency key, nil when the key is unused (or empty). It runs before the
// precondition checks: a replayed ref must return the recorded outcome even
// when balances, lockout, or KYC state have since changed. Derived refs are
// not checked here; for them the store-level check inside ApplyMovement is
// the only guard.
func (s *ledgerService) committedReplay(ctx context.Context, suppliedRef string) (*domain.Transaction, error) {
	if suppliedRef == "" {
		return nil, nil
	}
	tx, err := s.ledgerRepo.FindTransactionByRef(ctx, suppliedRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return tx, nil
}

func (s *ledgerService) checkKYCLimit(account *domain.Account, amount decimal.Decimal) error {
	limit, ok := s.kycLimits[account.KYCLevel]
	if !ok || amount.GreaterThan(limit) {
		return fmt.Errorf("%w: amount %s exceeds limit for KYC level %d", apperrors.ErrLimitExceeded, amount, account.KYCLevel)
	}
	return nil
}

// Transfer moves amount from sender's balance to receiver's balance.
func (s *ledgerService) Transfer(ctx context.Context, senderPhone, receiverPhone string, amount decimal.Decimal, pin, idempotencyRef string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	sp, err := s.normalizer.Normalize(senderPhone)
	if err != nil {
		return nil, err
	}
	rp, err := s.normalizer.Normalize(receiverPhone)
	if err != nil {
		return nil, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if sp == rp {
		return nil, fmt.Errorf("%w", apperrors.ErrSelfTransfer)
	}

	// A caller-supplied key that already committed is a replay: return the
	// recorded outcome before any precondition runs, so a retry after the
	// sender's balance or lockout state changed still sees the same result.
	if replay, err := s.committedReplay(ctx, idempotencyRef); err != nil {
		return nil, err
	} else if replay != nil {
		logger.Info("Transfer replayed idempotently", slog.String("ref", idempotencyRef))
		return replay, nil
	}

	sender, err := s.accountRepo.FindAccountByPhone(ctx, sp)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: sender not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}

	now := time.Now().UTC()
	receiver, err := s.provisionReceiver(ctx, rp, now)
	if err != nil {
		return nil, err
	}

	if !sender.Active {
		return nil, fmt.Errorf("%w: sender account is inactive", apperrors.ErrInactiveAccount)
	}
	if !receiver.Active {
		return nil, fmt.Errorf("%w: receiver account is inactive", apperrors.ErrInactiveAccount)
	}
	if err := s.checkKYCLimit(sender, amount); err != nil {
		return nil, err
	}

	// Credential gate. A wrong PIN mutates only lockout state, never balances.
	if err := s.authSvc.VerifyPIN(ctx, sender, pin); err != nil {
		return nil, err
	}

	// Fast-fail on an obviously short balance; the store re-checks inside
	// the movement transaction.
	if sender.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w", apperrors.ErrInsufficientFunds)
	}

	ref := resolveRef(idempotencyRef, "TRF", sender.AccountID, receiver.AccountID, amount)
	mv := domain.Movement{
		Ref: ref,
		Transactions: []domain.Transaction{{
			Ref:           ref,
			Type:          domain.TypeTransfer,
			FromAccountID: &sender.AccountID,
			ToAccountID:   &receiver.AccountID,
			Amount:        amount,
			Status:        domain.StatusOK,
			CreatedAt:     now,
		}},
		Legs: []domain.MovementLeg{
			{TransactionRef: ref, AccountID: sender.AccountID, Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: amount},
			{TransactionRef: ref, AccountID: receiver.AccountID, Direction: domain.Credit, BalanceKind: domain.BalanceMain, Amount: amount},
		},
	}

	tx, applied, err := s.ledgerRepo.ApplyMovement(ctx, mv)
	if err != nil {
		return nil, err
	}
	if !applied {
		logger.Info("Transfer replayed idempotently", slog.String("ref", ref))
		return tx, nil
	}

	middleware.MovementsTotal.WithLabelValues(string(domain.TypeTransfer)).Inc()
	s.audit.Record(ctx, domain.AuditEvent{AccountID: &sender.AccountID, Action: "transfer_out", Amount: &amount, Metadata: ref})
	s.audit.Record(ctx, domain.AuditEvent{AccountID: &receiver.AccountID, Action: "transfer_in", Amount: &amount, Metadata: ref})
	logger.Info("Transfer committed", slog.String("ref", ref), slog.String("amount", amount.String()))
	return tx, nil
}

// Pay debits the account for a service or bill payment. The debit has no
// counterpart account; the recorded transaction carries the service code in
// its metadata.
func (s *ledgerService) Pay(ctx context.Context, phone, service string, amount decimal.Decimal, pin, idempotencyRef string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	p, err := s.normalizer.Normalize(phone)
	if err != nil {
		return nil, err
	}
	if service == "" {
		return nil, fmt.Errorf("%w: service is required", apperrors.ErrValidation)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}

	if replay, err := s.committedReplay(ctx, idempotencyRef); err != nil {
		return nil, err
	} else if replay != nil {
		logger.Info("Payment replayed idempotently", slog.String("ref", idempotencyRef))
		return replay, nil
	}

	payer, err := s.accountRepo.FindAccountByPhone(ctx, p)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: account not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !payer.Active {
		return nil, fmt.Errorf("%w: account is inactive", apperrors.ErrInactiveAccount)
	}
	if err := s.authSvc.VerifyPIN(ctx, payer, pin); err != nil {
		return nil, err
	}
	if payer.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w", apperrors.ErrInsufficientFunds)
	}

	// Two identical payments to the same service are distinct operations,
	// so without a caller key the ref gets a random nonce instead of the
	// derived (from, to, amount) form.
	ref := idempotencyRef
	if ref == "" {
		nonce, err := utils.GenerateSecureRandomString(8)
		if err != nil {
			return nil, fmt.Errorf("failed to generate payment ref: %w", err)
		}
		ref = "PAY-" + nonce
	}

	now := time.Now().UTC()
	mv := domain.Movement{
		Ref: ref,
		Transactions: []domain.Transaction{{
			Ref:           ref,
			Type:          domain.TypePayment,
			FromAccountID: &payer.AccountID,
			ToAccountID:   nil, // external service provider
			Amount:        amount,
			Status:        domain.StatusOK,
			Metadata:      fmt.Sprintf(`{"service":%q}`, service),
			CreatedAt:     now,
		}},
		Legs: []domain.MovementLeg{
			{TransactionRef: ref, AccountID: payer.AccountID, Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: amount},
		},
	}

	tx, applied, err := s.ledgerRepo.ApplyMovement(ctx, mv)
	if err != nil {
		return nil, err
	}
	if !applied {
		logger.Info("Payment replayed idempotently", slog.String("ref", ref))
		return tx, nil
	}

	middleware.MovementsTotal.WithLabelValues(string(domain.TypePayment)).Inc()
	s.audit.Record(ctx, domain.AuditEvent{AccountID: &payer.AccountID, Action: "service_payment_" + service, Amount: &amount, Metadata: ref})
	logger.Info("Payment committed", slog.String("ref", ref), slog.String("service", service), slog.String("amount", amount.String()))
	return tx, nil
}

// AgentDeposit moves amount from the agent's e-float to the customer's balance.
func (s *ledgerService) AgentDeposit(ctx context.Context, agentPhone, customerPhone string, amount decimal.Decimal, idempotencyRef string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	ap, err := s.normalizer.Normalize(agentPhone)
	if err != nil {
		return nil, err
	}
	cp, err := s.normalizer.Normalize(customerPhone)
	if err != nil {
		return nil, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if ap == cp {
		return nil, fmt.Errorf("%w", apperrors.ErrSelfTransfer)
	}

	if replay, err := s.committedReplay(ctx, idempotencyRef); err != nil {
		return nil, err
	} else if replay != nil {
		logger.Info("Deposit replayed idempotently", slog.String("ref", idempotencyRef))
		return replay, nil
	}

	agent, err := s.accountRepo.FindAccountByPhone(ctx, ap)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: agent not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load agent: %w", err)
	}
	if agent.Role != domain.RoleAgent {
		return nil, fmt.Errorf("%w: account is not an agent", apperrors.ErrForbidden)
	}

	// Over-the-counter deposits go to an existing wallet only. Unlike
	// Transfer, an unknown customer phone is rejected, not provisioned.
	customer, err := s.accountRepo.FindAccountByPhone(ctx, cp)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	now := time.Now().UTC()

	if !agent.Active {
		return nil, fmt.Errorf("%w: agent account is inactive", apperrors.ErrInactiveAccount)
	}
	if !customer.Active {
		return nil, fmt.Errorf("%w: customer account is inactive", apperrors.ErrInactiveAccount)
	}
	if agent.FloatBalance.LessThan(amount) {
		return nil, fmt.Errorf("%w", apperrors.ErrInsufficientFloat)
	}

	ref := resolveRef(idempotencyRef, "DEP", agent.AccountID, customer.AccountID, amount)
	mv := domain.Movement{
		Ref: ref,
		Transactions: []domain.Transaction{{
			Ref:           ref,
			Type:          domain.TypeDeposit,
			FromAccountID: &agent.AccountID,
			ToAccountID:   &customer.AccountID,
			Amount:        amount,
			Status:        domain.StatusOK,
			CreatedAt:     now,
		}},
		Legs: []domain.MovementLeg{
			{TransactionRef: ref, AccountID: agent.AccountID, Direction: domain.Debit, BalanceKind: domain.BalanceFloat, Amount: amount},
			{TransactionRef: ref, AccountID: customer.AccountID, Direction: domain.Credit, BalanceKind: domain.BalanceMain, Amount: amount},
		},
	}

	tx, applied, err := s.ledgerRepo.ApplyMovement(ctx, mv)
	if err != nil {
		return nil, err
	}
	if !applied {
		logger.Info("Deposit replayed idempotently", slog.String("ref", ref))
		return tx, nil
	}

	middleware.MovementsTotal.WithLabelValues(string(domain.TypeDeposit)).Inc()
	s.audit.Record(ctx, domain.AuditEvent{AccountID: &agent.AccountID, Action: "agent_deposit", Amount: &amount, Metadata: ref})
	logger.Info("Agent deposit committed", slog.String("ref", ref), slog.String("amount", amount.String()))
	return tx, nil
}

// AgentCashout debits the customer amount+fee and credits the agent's
// e-float with the principal plus the agent's share of the fee. The owner's
// share is recorded as a COMMISSION transaction with no destination account:
// it is platform revenue, not an account credit.
func (s *ledgerService) AgentCashout(ctx context.Context, agentPhone, customerPhone string, amount decimal.Decimal, idempotencyRef string) (*dto.CashoutResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	ap, err := s.normalizer.Normalize(agentPhone)
	if err != nil {
		return nil, err
	}
	cp, err := s.normalizer.Normalize(customerPhone)
	if err != nil {
		return nil, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if ap == cp {
		return nil, fmt.Errorf("%w", apperrors.ErrSelfTransfer)
	}

	if replay, err := s.committedReplay(ctx, idempotencyRef); err != nil {
		return nil, err
	} else if replay != nil {
		// Re-derive the split from the recorded principal.
		fee, ferr := s.feePolicy.Quote(replay.Amount)
		if ferr != nil {
			return nil, ferr
		}
		ownerShare, agentShare := s.feePolicy.Split(fee)
		logger.Info("Cashout replayed idempotently", slog.String("ref", idempotencyRef))
		return &dto.CashoutResponse{
			Ref:        replay.Ref,
			Amount:     replay.Amount,
			Fee:        fee,
			OwnerShare: ownerShare,
			AgentShare: agentShare,
		}, nil
	}

	agent, err := s.accountRepo.FindAccountByPhone(ctx, ap)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: agent not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load agent: %w", err)
	}
	if agent.Role != domain.RoleAgent {
		return nil, fmt.Errorf("%w: account is not an agent", apperrors.ErrForbidden)
	}
	customer, err := s.accountRepo.FindAccountByPhone(ctx, cp)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer not found", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	if !agent.Active {
		return nil, fmt.Errorf("%w: agent account is inactive", apperrors.ErrInactiveAccount)
	}
	if !customer.Active {
		return nil, fmt.Errorf("%w: customer account is inactive", apperrors.ErrInactiveAccount)
	}

	fee, err := s.feePolicy.Quote(amount)
	if err != nil {
		return nil, err
	}
	ownerShare, agentShare := s.feePolicy.Split(fee)
	total := amount.Add(fee)

	if customer.Balance.LessThan(total) {
		return nil, fmt.Errorf("%w: balance cannot cover amount + fee %s", apperrors.ErrInsufficientFunds, total)
	}

	now := time.Now().UTC()
	ref := resolveRef(idempotencyRef, "CSO", agent.AccountID, customer.AccountID, amount)

	transactions := []domain.Transaction{{
		Ref:           ref,
		Type:          domain.TypeCashout,
		FromAccountID: &customer.AccountID,
		ToAccountID:   &agent.AccountID,
		Amount:        amount,
		Status:        domain.StatusOK,
		CreatedAt:     now,
	}}
	legs := []domain.MovementLeg{
		{TransactionRef: ref, AccountID: customer.AccountID, Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: amount},
		{TransactionRef: ref, AccountID: agent.AccountID, Direction: domain.Credit, BalanceKind: domain.BalanceFloat, Amount: amount},
	}

	if ownerShare.IsPositive() {
		ownerRef := ref + "-FOWN"
		transactions = append(transactions, domain.Transaction{
			Ref:           ownerRef,
			Type:          domain.TypeCommission,
			FromAccountID: &customer.AccountID,
			ToAccountID:   nil, // platform owner
			Amount:        ownerShare,
			Status:        domain.StatusOK,
			Metadata:      `{"role":"owner"}`,
			CreatedAt:     now,
		})
		// Owner leg has no counterpart account: single debit entry.
		legs = append(legs, domain.MovementLeg{TransactionRef: ownerRef, AccountID: customer.AccountID, Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: ownerShare})
	}
	if agentShare.IsPositive() {
		agentRef := ref + "-FAGT"
		transactions = append(transactions, domain.Transaction{
			Ref:           agentRef,
			Type:          domain.TypeCommission,
			FromAccountID: &customer.AccountID,
			ToAccountID:   &agent.AccountID,
			Amount:        agentShare,
			Status:        domain.StatusOK,
			Metadata:      `{"role":"agent"}`,
			CreatedAt:     now,
		})
		legs = append(legs,
			domain.MovementLeg{TransactionRef: agentRef, AccountID: customer.AccountID, Direction: domain.Debit, BalanceKind: domain.BalanceMain, Amount: agentShare},
			domain.MovementLeg{TransactionRef: agentRef, AccountID: agent.AccountID, Direction: domain.Credit, BalanceKind: domain.BalanceFloat, Amount: agentShare},
		)
	}

	tx, applied, err := s.ledgerRepo.ApplyMovement(ctx, domain.Movement{Ref: ref, Transactions: transactions, Legs: legs})
	if err != nil {
		return nil, err
	}

	resp := &dto.CashoutResponse{
		Ref:        tx.Ref,
		Amount:     amount,
		Fee:        fee,
		OwnerShare: ownerShare,
		AgentShare: agentShare,
	}
	if !applied {
		logger.Info("Cashout replayed idempotently", slog.String("ref", ref))
		return resp, nil
	}

	middleware.MovementsTotal.WithLabelValues(string(domain.TypeCashout)).Inc()
	s.audit.Record(ctx, domain.AuditEvent{AccountID: &customer.AccountID, Action: "cashout", Amount: &total, Metadata: ref})
	s.audit.Record(ctx, domain.AuditEvent{AccountID: &agent.AccountID, Action: "cashout_float_credit", Amount: &amount, Metadata: ref})
	logger.Info("Cashout committed", slog.String("ref", ref), slog.String("amount", amount.String()), slog.String("fee", fee.String()))
	return resp, nil
}

// Balance returns the account for the canonical phone.
func (s *ledgerService) Balance(ctx context.Context, phone string) (*domain.Account, error) {
	p, err := s.normalizer.Normalize(phone)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.FindAccountByPhone(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// Statement returns the account's ledger entries, newest first.
func (s *ledgerService) Statement(ctx context.Context, phone string, limit, offset int) ([]domain.LedgerEntry, error) {
	account, err := s.Balance(ctx, phone)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledgerRepo.ListEntriesByAccount(ctx, account.AccountID, limit, offset)
}

// History returns recent transactions involving the account, together with
// the account itself so callers can derive each transaction's direction
// without a second lookup.
func (s *ledgerService) History(ctx context.Context, phone string, limit int) (*domain.Account, []domain.Transaction, error) {
	account, err := s.Balance(ctx, phone)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txs, err := s.ledgerRepo.ListTransactionsByAccount(ctx, account.AccountID, limit)
	if err != nil {
		return nil, nil, err
	}
	return account, txs, nil
}
