package services

import (
	"log"
	"os"
	"strconv"
	"time"
)

// PlatformConfig carries the platform economics and settlement knobs.
// It is passed explicitly into the pure components so they stay testable —
// nothing in this package reads ambient process state at claim time.
type PlatformConfig struct {
	FeePercentage  float64 // platform cut of each reward, e.g. 10
	MinQuestBudget float64
	MaxQuestBudget float64
	MinQuestReward float64

	// How long a single on-chain settlement may take before the claim is
	// treated as failed-and-retriable by the caller.
	SettlementTimeout time.Duration
}

func DefaultPlatformConfig() PlatformConfig {
	return PlatformConfig{
		FeePercentage:     10,
		MinQuestBudget:    100,
		MaxQuestBudget:    100_000,
		MinQuestReward:    1,
		SettlementTimeout: 60 * time.Second,
	}
}

// LoadPlatformConfig reads optional env overrides on top of the defaults.
func LoadPlatformConfig() PlatformConfig {
	cfg := DefaultPlatformConfig()
	if v := os.Getenv("PLATFORM_FEE_PERCENTAGE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f >= 100 {
			log.Fatal("invalid PLATFORM_FEE_PERCENTAGE:", v)
		}
		cfg.FeePercentage = f
	}
	if v := os.Getenv("MIN_QUEST_BUDGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.MinQuestBudget = f
		}
	}
	if v := os.Getenv("MAX_QUEST_BUDGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.MaxQuestBudget = f
		}
	}
	if v := os.Getenv("SETTLEMENT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SettlementTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}
