package services

// ServiceContainer holds all the service interfaces used by the application.
// It is used to inject dependencies into the handlers.
type ServiceContainer struct {
	Auth   AuthSvcFacade
	Ledger LedgerSvcFacade
	OTP    OTPSvcFacade
}
