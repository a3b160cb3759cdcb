package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/domain"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/core/services"
	"github.com/mzwallet/mz_wallet_backend/internal/utils"
)

// MockAccountRepository is a mock type for the AccountRepository interface
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) EnsureAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		if args.Error(1) == nil {
			// Echo the inserted row back, like a fresh insert would.
			return &account, nil
		}
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateCredential(ctx context.Context, accountID string, credentialHash string, now time.Time) error {
	args := m.Called(ctx, accountID, credentialHash, now)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateLockout(ctx context.Context, accountID string, failCount int, lockedUntil *time.Time, now time.Time) error {
	args := m.Called(ctx, accountID, failCount, lockedUntil, now)
	return args.Error(0)
}

func (m *MockAccountRepository) PromoteToAgent(ctx context.Context, accountID string, credentialHash string, floatBalance decimal.Decimal, now time.Time) error {
	args := m.Called(ctx, accountID, credentialHash, floatBalance, now)
	return args.Error(0)
}

// MockOTPSvc is a mock type for the OTPSvcFacade interface
type MockOTPSvc struct {
	mock.Mock
}

func (m *MockOTPSvc) Issue(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

func (m *MockOTPSvc) Verify(ctx context.Context, phone, candidate string) error {
	args := m.Called(ctx, phone, candidate)
	return args.Error(0)
}

// MockTokenIssuer is a mock type for the TokenIssuer interface
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(phone string) (string, error) {
	args := m.Called(phone)
	return args.String(0), args.Error(1)
}

// MockAuditSink is a mock type for the AuditSink interface
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, event domain.AuditEvent) {
	m.Called(ctx, event)
}

// --- Test Suite Setup ---

type AuthServiceTestSuite struct {
	suite.Suite
	mockRepo   *MockAccountRepository
	mockOTP    *MockOTPSvc
	mockTokens *MockTokenIssuer
	mockAudit  *MockAuditSink
	service    portssvc.AuthSvcFacade
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockAccountRepository)
	suite.mockOTP = new(MockOTPSvc)
	suite.mockTokens = new(MockTokenIssuer)
	suite.mockAudit = new(MockAuditSink)
	suite.mockAudit.On("Record", mock.Anything, mock.Anything).Maybe()

	suite.service = services.NewAuthService(
		suite.mockRepo,
		suite.mockOTP,
		suite.mockTokens,
		utils.NewPhoneNormalizer("MZ"),
		suite.mockAudit,
		"0000",
		services.LockoutConfig{MaxFails: 3, LockDuration: 5 * time.Minute},
	)
}

func customerAccount(pin string) *domain.Account {
	hash, err := utils.HashPIN(pin)
	if err != nil {
		panic(err)
	}
	now := time.Now().UTC()
	return &domain.Account{
		AccountID:      uuid.NewString(),
		Phone:          testPhone,
		Role:           domain.RoleCustomer,
		Balance:        decimal.NewFromInt(1000),
		CredentialHash: hash,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// --- Test Cases ---

func (suite *AuthServiceTestSuite) TestRequestOTP_KnownAccount() {
	ctx := context.Background()
	existing := customerAccount("4825")

	// EnsureAccount returns the pre-existing row, so no self-registration audit.
	suite.mockRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).Return(existing, nil).Once()
	suite.mockOTP.On("Issue", ctx, testPhone).Return(nil).Once()

	err := suite.service.RequestOTP(ctx, "841234567")

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockOTP.AssertExpectations(suite.T())
}

func (suite *AuthServiceTestSuite) TestRequestOTP_SelfRegistersUnknownPhone() {
	ctx := context.Background()

	// EnsureAccount inserts and echoes back the fresh row.
	suite.mockRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil, nil).Once()
	suite.mockOTP.On("Issue", ctx, testPhone).Return(nil).Once()

	err := suite.service.RequestOTP(ctx, "84 123 4567")

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
	suite.mockAudit.AssertCalled(suite.T(), "Record", mock.Anything, mock.MatchedBy(func(e domain.AuditEvent) bool {
		return e.Action == "account_self_registered"
	}))
}

func (suite *AuthServiceTestSuite) TestRequestOTP_InvalidPhone() {
	err := suite.service.RequestOTP(context.Background(), "not-a-phone")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "EnsureAccount", mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestLoginWithOTP_Success() {
	ctx := context.Background()
	existing := customerAccount("4825")

	suite.mockOTP.On("Verify", ctx, testPhone, "482913").Return(nil).Once()
	suite.mockRepo.On("FindAccountByPhone", ctx, testPhone).Return(existing, nil).Once()
	suite.mockTokens.On("Issue", testPhone).Return("signed.jwt.token", nil).Once()

	token, err := suite.service.LoginWithOTP(ctx, "841234567", "482913")

	suite.Require().NoError(err)
	suite.Equal("signed.jwt.token", token)
	suite.mockOTP.AssertExpectations(suite.T())
	suite.mockTokens.AssertExpectations(suite.T())
}

func (suite *AuthServiceTestSuite) TestLoginWithOTP_WrongCode() {
	ctx := context.Background()

	suite.mockOTP.On("Verify", ctx, testPhone, "000000").Return(apperrors.ErrAuth).Once()

	token, err := suite.service.LoginWithOTP(ctx, "841234567", "000000")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrAuth)
	suite.Empty(token)
	suite.mockTokens.AssertNotCalled(suite.T(), "Issue", mock.Anything)
}

func (suite *AuthServiceTestSuite) TestVerifyPIN_Correct() {
	ctx := context.Background()
	account := customerAccount("4825")

	err := suite.service.VerifyPIN(ctx, account, "4825")

	suite.NoError(err)
	suite.Zero(account.FailCount)
}

func (suite *AuthServiceTestSuite) TestVerifyPIN_WrongIncrementsFailCount() {
	ctx := context.Background()
	account := customerAccount("4825")

	suite.mockRepo.On("UpdateLockout", ctx, account.AccountID, 1, (*time.Time)(nil), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.VerifyPIN(ctx, account, "0000")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrAuth)
	suite.Equal(1, account.FailCount)
	suite.Nil(account.LockedUntil)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AuthServiceTestSuite) TestVerifyPIN_ThirdFailureLocks() {
	ctx := context.Background()
	account := customerAccount("4825")
	account.FailCount = 2

	suite.mockRepo.On("UpdateLockout", ctx, account.AccountID, 0, mock.AnythingOfType("*time.Time"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.VerifyPIN(ctx, account, "0000")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrAuth)
	suite.Require().NotNil(account.LockedUntil)
	suite.WithinDuration(time.Now().Add(5*time.Minute), *account.LockedUntil, 2*time.Second)
	suite.Zero(account.FailCount) // counter resets when the lock engages
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AuthServiceTestSuite) TestVerifyPIN_LockedAccountFailsFast() {
	ctx := context.Background()
	account := customerAccount("4825")
	lockedUntil := time.Now().UTC().Add(3 * time.Minute)
	account.LockedUntil = &lockedUntil

	err := suite.service.VerifyPIN(ctx, account, "4825")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrLocked)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateLockout", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestVerifyPIN_ExpiredLockAllowsRetry() {
	ctx := context.Background()
	account := customerAccount("4825")
	lockedUntil := time.Now().UTC().Add(-time.Minute)
	account.LockedUntil = &lockedUntil

	suite.mockRepo.On("UpdateLockout", ctx, account.AccountID, 0, (*time.Time)(nil), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.VerifyPIN(ctx, account, "4825")

	suite.NoError(err)
	suite.Nil(account.LockedUntil)
}

func (suite *AuthServiceTestSuite) TestChangePIN_Success() {
	ctx := context.Background()
	account := customerAccount("4825")

	suite.mockRepo.On("FindAccountByPhone", ctx, testPhone).Return(account, nil).Once()
	suite.mockRepo.On("UpdateCredential", ctx, account.AccountID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.ChangePIN(ctx, "841234567", "4825", "7093")

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AuthServiceTestSuite) TestChangePIN_RejectsWeakPIN() {
	ctx := context.Background()
	account := customerAccount("4825")

	suite.mockRepo.On("FindAccountByPhone", ctx, testPhone).Return(account, nil).Once()

	err := suite.service.ChangePIN(ctx, "841234567", "4825", "1234")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateCredential", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestChangePIN_WrongCurrentPIN() {
	ctx := context.Background()
	account := customerAccount("4825")

	suite.mockRepo.On("FindAccountByPhone", ctx, testPhone).Return(account, nil).Once()
	suite.mockRepo.On("UpdateLockout", ctx, account.AccountID, 1, (*time.Time)(nil), mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.ChangePIN(ctx, "841234567", "0000", "7093")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrAuth)
	suite.mockRepo.AssertNotCalled(suite.T(), "UpdateCredential", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestSeedAgent_PromotesAccount() {
	ctx := context.Background()
	existing := customerAccount("4825")
	floatAmount := decimal.NewFromInt(50000)

	suite.mockRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).Return(existing, nil).Once()
	suite.mockRepo.On("PromoteToAgent", ctx, existing.AccountID, mock.AnythingOfType("string"), floatAmount, mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := suite.service.SeedAgent(ctx, "841234567", "7093", floatAmount)

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AuthServiceTestSuite) TestSeedAgent_NegativeFloat() {
	err := suite.service.SeedAgent(context.Background(), "841234567", "7093", decimal.NewFromInt(-1))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
