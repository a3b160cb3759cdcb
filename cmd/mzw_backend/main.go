package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mzwallet/mz_wallet_backend/internal/adapters/database/pgsql"
	"github.com/mzwallet/mz_wallet_backend/internal/adapters/messaging"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/core/services"
	"github.com/mzwallet/mz_wallet_backend/internal/handlers"
	"github.com/mzwallet/mz_wallet_backend/internal/jobs"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
	"github.com/mzwallet/mz_wallet_backend/internal/platform/config"
	"github.com/mzwallet/mz_wallet_backend/internal/utils"
	"github.com/mzwallet/mz_wallet_backend/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Repositories
	accountRepo := pgsql.NewAccountRepository(dbPool)
	ledgerRepo := pgsql.NewLedgerRepository(dbPool)
	otpRepo := pgsql.NewOTPRepository(dbPool)
	auditRepo := pgsql.NewAuditRepository(dbPool)

	// OTP delivery: AMQP when a broker is configured, log-only otherwise.
	var codeSender portssvc.CodeSender
	if cfg.AMQPURL != "" {
		amqpSender, err := messaging.NewAMQPCodeSender(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to connect AMQP code sender", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer amqpSender.Close()
		codeSender = amqpSender
	} else {
		logger.Warn("AMQP_URL not set; OTP codes are delivered to the log only")
		codeSender = messaging.NewLogCodeSender()
	}

	// Services
	normalizer := utils.NewPhoneNormalizer(cfg.DefaultRegion)
	tokens := &utils.JWTIssuer{Secret: cfg.JWTSecret, Expiry: cfg.JWTExpiryDuration, IssuerID: cfg.JWTIssuer}
	audit := services.NewAuditService(auditRepo)
	otpSvc := services.NewOTPService(otpRepo, codeSender, services.OTPConfig{
		TTL:           cfg.OTPTTL,
		CodeDigits:    cfg.OTPCodeDigits,
		MaxAttempts:   cfg.OTPMaxAttempts,
		BlockDuration: cfg.OTPBlockDuration,
	})
	authSvc := services.NewAuthService(accountRepo, otpSvc, tokens, normalizer, audit, cfg.DefaultPIN, services.LockoutConfig{
		MaxFails:     cfg.PINMaxFails,
		LockDuration: cfg.PINLockDuration,
	})
	feePolicy, err := services.NewFeePolicyFromConfig(cfg)
	if err != nil {
		logger.Error("Failed to build fee policy", slog.String("error", err.Error()))
		os.Exit(1)
	}
	ledgerSvc := services.NewLedgerService(accountRepo, ledgerRepo, authSvc, feePolicy, audit, normalizer, cfg.KYCLimits, cfg.DefaultPIN)

	// Background OTP table cleanup
	cleanup := jobs.NewOTPCleanupJob(otpRepo, logger)
	if err := cleanup.Start(); err != nil {
		logger.Error("Failed to start otp cleanup job", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup.Stop()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), middleware.Metrics())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, &portssvc.ServiceContainer{
		Auth:   authSvc,
		Ledger: ledgerSvc,
		OTP:    otpSvc,
	})

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations using a temporary
// database/sql connection through the pgx stdlib driver.
func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
