package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	DefaultRegion string // default phone region for normalization
	DefaultPIN    string // PIN assigned on auto-provisioned accounts

	OTPTTL           time.Duration
	OTPCodeDigits    int
	OTPMaxAttempts   int
	OTPBlockDuration time.Duration
	OTPRateLimit     string // ulule/limiter formatted rate, e.g. "5-M"

	PINMaxFails     int
	PINLockDuration time.Duration

	FeeStrategy   string // "percent" or "tiered"
	CashoutFeePct decimal.Decimal
	CashoutFeeMin decimal.Decimal
	CashoutFeeMax decimal.Decimal
	FeeOwnerPct   decimal.Decimal
	FeeTiers      string // "low:high:fee,low:high:fee,..."

	KYCLimits map[int]decimal.Decimal // kyc level -> max per-transaction amount

	AMQPURL      string // empty disables the AMQP code sender
	AMQPExchange string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "mz-wallet-backend")
	viper.SetDefault("DEFAULT_REGION", "MZ")
	viper.SetDefault("DEFAULT_PIN", "0000")
	viper.SetDefault("OTP_TTL", "5m")
	viper.SetDefault("OTP_CODE_DIGITS", 6)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 3)
	viper.SetDefault("OTP_BLOCK_DURATION", "10m")
	viper.SetDefault("OTP_RATE_LIMIT", "5-M")
	viper.SetDefault("PIN_MAX_FAILS", 3)
	viper.SetDefault("PIN_LOCK_DURATION", "5m")
	viper.SetDefault("FEE_STRATEGY", "percent")
	viper.SetDefault("CASHOUT_FEE_PCT", "1.5")
	viper.SetDefault("CASHOUT_FEE_MIN", "5")
	viper.SetDefault("CASHOUT_FEE_MAX", "150")
	viper.SetDefault("FEE_OWNER_PCT", "60")
	viper.SetDefault("FEE_TIERS", "")
	viper.SetDefault("KYC_LIMITS", "0:10000,1:50000,2:500000")
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "wallet.otp")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	var err error
	if cfg.JWTExpiryDuration, err = time.ParseDuration(viper.GetString("JWT_EXPIRY_DURATION")); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_DURATION: %w", err)
	}
	if cfg.OTPTTL, err = time.ParseDuration(viper.GetString("OTP_TTL")); err != nil {
		return nil, fmt.Errorf("invalid OTP_TTL: %w", err)
	}
	if cfg.OTPBlockDuration, err = time.ParseDuration(viper.GetString("OTP_BLOCK_DURATION")); err != nil {
		return nil, fmt.Errorf("invalid OTP_BLOCK_DURATION: %w", err)
	}
	if cfg.PINLockDuration, err = time.ParseDuration(viper.GetString("PIN_LOCK_DURATION")); err != nil {
		return nil, fmt.Errorf("invalid PIN_LOCK_DURATION: %w", err)
	}

	cfg.DefaultRegion = viper.GetString("DEFAULT_REGION")
	cfg.DefaultPIN = viper.GetString("DEFAULT_PIN")
	cfg.OTPCodeDigits = viper.GetInt("OTP_CODE_DIGITS")
	cfg.OTPMaxAttempts = viper.GetInt("OTP_MAX_ATTEMPTS")
	cfg.OTPRateLimit = viper.GetString("OTP_RATE_LIMIT")
	cfg.PINMaxFails = viper.GetInt("PIN_MAX_FAILS")

	cfg.FeeStrategy = viper.GetString("FEE_STRATEGY")
	if cfg.CashoutFeePct, err = decimal.NewFromString(viper.GetString("CASHOUT_FEE_PCT")); err != nil {
		return nil, fmt.Errorf("invalid CASHOUT_FEE_PCT: %w", err)
	}
	if cfg.CashoutFeeMin, err = decimal.NewFromString(viper.GetString("CASHOUT_FEE_MIN")); err != nil {
		return nil, fmt.Errorf("invalid CASHOUT_FEE_MIN: %w", err)
	}
	if cfg.CashoutFeeMax, err = decimal.NewFromString(viper.GetString("CASHOUT_FEE_MAX")); err != nil {
		return nil, fmt.Errorf("invalid CASHOUT_FEE_MAX: %w", err)
	}
	if cfg.FeeOwnerPct, err = decimal.NewFromString(viper.GetString("FEE_OWNER_PCT")); err != nil {
		return nil, fmt.Errorf("invalid FEE_OWNER_PCT: %w", err)
	}
	cfg.FeeTiers = viper.GetString("FEE_TIERS")

	if cfg.KYCLimits, err = parseKYCLimits(viper.GetString("KYC_LIMITS")); err != nil {
		return nil, fmt.Errorf("invalid KYC_LIMITS: %w", err)
	}

	cfg.AMQPURL = viper.GetString("AMQP_URL")
	cfg.AMQPExchange = viper.GetString("AMQP_EXCHANGE")

	return cfg, nil
}

// parseKYCLimits parses "level:maxAmount" pairs separated by commas.
func parseKYCLimits(raw string) (map[int]decimal.Decimal, error) {
	limits := make(map[int]decimal.Decimal)
	if raw == "" {
		return limits, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		level, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed level in %q: %w", pair, err)
		}
		max, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed amount in %q: %w", pair, err)
		}
		limits[level] = max
	}
	return limits, nil
}
