package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	TierFree           = "free"
	TierPremiumMonthly = "premium_monthly"
	TierPremiumYearly  = "premium_yearly"

	CapabilityPremium = "premium"
	CapabilityAdmin   = "admin"
)

// EntitlementConfig maps subscription tiers to the capabilities they unlock.
type EntitlementConfig struct {
	Tiers          map[string][]string `mapstructure:"tiers"`
	ActiveStatuses []string            `mapstructure:"activeStatuses"`
}

func DefaultEntitlementConfig() EntitlementConfig {
	return EntitlementConfig{
		Tiers: map[string][]string{
			TierFree:           {},
			TierPremiumMonthly: {CapabilityPremium},
			TierPremiumYearly:  {CapabilityPremium},
		},
		ActiveStatuses: []string{"active", "trialing"},
	}
}

// Capabilities returns the capabilities granted by tier.
func (c EntitlementConfig) Capabilities(tier string) []string {
	caps, ok := c.Tiers[strings.ToLower(strings.TrimSpace(tier))]
	if !ok {
		return nil
	}
	out := make([]string, len(caps))
	copy(out, caps)
	return out
}

// StatusActive reports whether status keeps a paid tier in force.
func (c EntitlementConfig) StatusActive(status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	for _, s := range c.ActiveStatuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

type EntitlementConfigHolder struct {
	current atomic.Value // holds EntitlementConfig
}

func NewEntitlementConfigHolder() (*EntitlementConfigHolder, error) {
	return newEntitlementConfigHolder("/var/lib/botcentral/config", "/etc/botcentral", ".")
}

// NewStaticEntitlementConfigHolder returns a holder that never reloads.
func NewStaticEntitlementConfigHolder(cfg EntitlementConfig) *EntitlementConfigHolder {
	holder := &EntitlementConfigHolder{}
	holder.current.Store(normalizeEntitlementConfig(cfg))
	return holder
}

func newEntitlementConfigHolder(paths ...string) (*EntitlementConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("entitlements")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("BOTCENTRAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEntitlementConfig()
	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
		v.SetDefault("entitlements.tiers", defaults.Tiers)
	}
	v.SetDefault("entitlements.activeStatuses", defaults.ActiveStatuses)

	var cfg EntitlementConfig
	if err := v.UnmarshalKey("entitlements", &cfg); err != nil {
		return nil, err
	}
	cfg = normalizeEntitlementConfig(cfg)
	if err := validateEntitlementConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EntitlementConfigHolder{}
	holder.current.Store(cfg)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated EntitlementConfig
			if err := v.UnmarshalKey("entitlements", &updated); err != nil {
				zap.L().Warn("entitlement config reload failed", zap.Error(err))
				return
			}
			updated = normalizeEntitlementConfig(updated)
			if err := validateEntitlementConfig(updated); err != nil {
				zap.L().Warn("invalid entitlement config ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			zap.L().Info("entitlement config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *EntitlementConfigHolder) Get() EntitlementConfig {
	return h.current.Load().(EntitlementConfig)
}

func normalizeEntitlementConfig(cfg EntitlementConfig) EntitlementConfig {
	tiers := make(map[string][]string, len(cfg.Tiers))
	for tier, caps := range cfg.Tiers {
		key := strings.ToLower(strings.TrimSpace(tier))
		if key == "" {
			continue
		}
		normalized := make([]string, 0, len(caps))
		for _, c := range caps {
			c = strings.ToLower(strings.TrimSpace(c))
			if c != "" {
				normalized = append(normalized, c)
			}
		}
		tiers[key] = normalized
	}
	cfg.Tiers = tiers
	return cfg
}

func validateEntitlementConfig(cfg EntitlementConfig) error {
	if len(cfg.Tiers) == 0 {
		return errors.New("entitlements.tiers cannot be empty")
	}
	if len(cfg.ActiveStatuses) == 0 {
		return errors.New("entitlements.activeStatuses cannot be empty")
	}
	return nil
}
