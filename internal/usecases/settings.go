package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"
)

// Dynamic platform setting keys.
const (
	SettingMinInvestmentAmount         = "min_investment_amount"
	SettingMaxInvestmentAmount         = "max_investment_amount"
	SettingMaxAllocationsPerSubmission = "max_allocations_per_submission"
)

// Settings is an immutable view of platform settings resolved once per request.
type Settings struct {
	values map[string]string
}

func NewSettings(values map[string]string) Settings {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Settings{values: copied}
}

func (s Settings) String(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Decimal returns def when the key is missing or not a number.
func (s Settings) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

func (s Settings) Int(key string, def int) int {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// SettingsProvider loads platform settings from storage, through an optional cache.
type SettingsProvider struct {
	logger *slog.Logger
	repo   SettingsRepository
	cache  SettingsCache
}

func NewSettingsProvider(logger *slog.Logger, repo SettingsRepository, cache SettingsCache) *SettingsProvider {
	return &SettingsProvider{logger: logger, repo: repo, cache: cache}
}

// Resolve returns the current settings. Cache failures fall back to storage.
func (p *SettingsProvider) Resolve(ctx context.Context) (Settings, error) {
	if p.cache != nil {
		values, ok, err := p.cache.Load(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "Settings cache read failed", "error", err)
		} else if ok {
			return NewSettings(values), nil
		}
	}

	values, err := p.repo.All(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load platform settings: %w", err)
	}

	if p.cache != nil {
		if err = p.cache.Store(ctx, values); err != nil {
			p.logger.WarnContext(ctx, "Settings cache write failed", "error", err)
		}
	}
	return NewSettings(values), nil
}
