package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/platform/config"
)

var oneHundred = decimal.NewFromInt(100)

// splitFee divides a fee between owner and agent. The agent share is the
// remainder, so the shares always sum exactly to the fee.
func splitFee(fee, ownerPct decimal.Decimal) (ownerShare, agentShare decimal.Decimal) {
	ownerShare = fee.Mul(ownerPct).Div(oneHundred)
	agentShare = fee.Sub(ownerShare)
	return ownerShare, agentShare
}

// percentFeePolicy computes fee = clamp(amount * pct/100, min, max).
type percentFeePolicy struct {
	pct      decimal.Decimal
	min      decimal.Decimal
	max      decimal.Decimal
	ownerPct decimal.Decimal
}

// NewPercentFeePolicy creates the percentage-with-caps strategy.
func NewPercentFeePolicy(pct, min, max, ownerPct decimal.Decimal) portssvc.FeePolicy {
	return &percentFeePolicy{pct: pct, min: min, max: max, ownerPct: ownerPct}
}

func (p *percentFeePolicy) Quote(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", apperrors.ErrAmountOutOfRange)
	}
	fee := amount.Mul(p.pct).Div(oneHundred)
	if fee.LessThan(p.min) {
		fee = p.min
	}
	if fee.GreaterThan(p.max) {
		fee = p.max
	}
	return fee, nil
}

func (p *percentFeePolicy) Split(fee decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return splitFee(fee, p.ownerPct)
}

// feeBand is one inclusive tier of the fixed-tier table.
type feeBand struct {
	Low  decimal.Decimal
	High decimal.Decimal
	Fee  decimal.Decimal
}

// tieredFeePolicy looks the fee up from an ordered band table; amounts
// outside every band are rejected.
type tieredFeePolicy struct {
	bands    []feeBand
	ownerPct decimal.Decimal
}

// NewTieredFeePolicy creates the fixed-tier strategy.
func NewTieredFeePolicy(bands []feeBand, ownerPct decimal.Decimal) portssvc.FeePolicy {
	return &tieredFeePolicy{bands: bands, ownerPct: ownerPct}
}

func (p *tieredFeePolicy) Quote(amount decimal.Decimal) (decimal.Decimal, error) {
	for _, b := range p.bands {
		if amount.GreaterThanOrEqual(b.Low) && amount.LessThanOrEqual(b.High) {
			return b.Fee, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no fee tier covers amount %s", apperrors.ErrAmountOutOfRange, amount)
}

func (p *tieredFeePolicy) Split(fee decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return splitFee(fee, p.ownerPct)
}

// NewFeePolicyFromConfig selects the configured strategy. FEE_STRATEGY is
// "percent" (default) or "tiered"; tiers are "low:high:fee" triples joined
// by commas.
func NewFeePolicyFromConfig(cfg *config.Config) (portssvc.FeePolicy, error) {
	switch cfg.FeeStrategy {
	case "", "percent":
		return NewPercentFeePolicy(cfg.CashoutFeePct, cfg.CashoutFeeMin, cfg.CashoutFeeMax, cfg.FeeOwnerPct), nil
	case "tiered":
		bands, err := parseFeeTiers(cfg.FeeTiers)
		if err != nil {
			return nil, fmt.Errorf("invalid FEE_TIERS: %w", err)
		}
		if len(bands) == 0 {
			return nil, fmt.Errorf("FEE_STRATEGY is tiered but FEE_TIERS is empty")
		}
		return NewTieredFeePolicy(bands, cfg.FeeOwnerPct), nil
	default:
		return nil, fmt.Errorf("unknown FEE_STRATEGY %q", cfg.FeeStrategy)
	}
}

func parseFeeTiers(raw string) ([]feeBand, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var bands []feeBand
	for _, triple := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(triple), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed tier %q", triple)
		}
		low, err := decimal.NewFromString(parts[0])
		if err != nil {
			return nil, fmt.Errorf("malformed low bound in %q: %w", triple, err)
		}
		high, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed high bound in %q: %w", triple, err)
		}
		fee, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("malformed fee in %q: %w", triple, err)
		}
		if high.LessThan(low) {
			return nil, fmt.Errorf("tier %q has high < low", triple)
		}
		bands = append(bands, feeBand{Low: low, High: high, Fee: fee})
	}
	return bands, nil
}
