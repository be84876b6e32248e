package config

import (
	"strings"
	"sync/atomic"

	"github.com/spf13/viper"
)

// PlanLimits caps collaboration features per subscription plan. A limit of -1
// means unlimited.
type PlanLimits struct {
	MaxCollaboratorsPerResource int `mapstructure:"maxCollaboratorsPerResource"`
	MaxPendingInvites           int `mapstructure:"maxPendingInvites"`
}

type PlanConfig struct {
	Default string                `mapstructure:"default"`
	Plans   map[string]PlanLimits `mapstructure:"plans"`
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		Default: "free",
		Plans: map[string]PlanLimits{
			"free":     {MaxCollaboratorsPerResource: 5, MaxPendingInvites: 10},
			"pro":      {MaxCollaboratorsPerResource: 50, MaxPendingInvites: 100},
			"business": {MaxCollaboratorsPerResource: -1, MaxPendingInvites: -1},
		},
	}
}

// PlanConfigHolder serves the current plan table; reads are lock-free.
type PlanConfigHolder struct {
	current atomic.Value
}

func NewPlanConfigHolder() (*PlanConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/workhive")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WORKHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultPlanConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	} else {
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
		if cfg.Default == "" {
			cfg.Default = "free"
		}
	}

	holder := &PlanConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *PlanConfigHolder) Get() PlanConfig {
	return h.current.Load().(PlanConfig)
}

// LimitsFor resolves the limits of a plan tag, falling back to the default
// plan for unknown tags.
func (h *PlanConfigHolder) LimitsFor(plan string) PlanLimits {
	cfg := h.Get()
	if limits, ok := cfg.Plans[strings.ToLower(strings.TrimSpace(plan))]; ok {
		return limits
	}
	return cfg.Plans[cfg.Default]
}
