package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

// Load parses the process environment. Missing required keys are an error,
// callers treat it as fatal.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	rate, err := decimal.NewFromString(cfg.Coupon.DiscountRate)
	if err != nil {
		return nil, fmt.Errorf("parse COUPON_DISCOUNT_RATE: %w", err)
	}
	if !rate.IsPositive() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("COUPON_DISCOUNT_RATE must be between 0 and 1, got %s", cfg.Coupon.DiscountRate)
	}

	return cfg, nil
}

func (c *Coupon) Rate() decimal.Decimal {
	return decimal.RequireFromString(c.DiscountRate)
}
