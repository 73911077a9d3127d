package config

import "strings"

// 默认值常量
const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultAppHTTPAddr    = ":8948"
	defaultAppLogPath     = "data/logs/geminibo.log"
	defaultAppDataDir     = "data"
	defaultMarketName     = "settrade"
	defaultMarketCacheTTL = 30
	defaultMarketSuffix   = ".BK"
	defaultMarketDepth    = 5
	defaultInterval       = "1d"
	defaultLookback       = 60
	defaultRulesPath      = "configs/rules.yaml"
	defaultLedgerPath     = "data/ledger.json"
	defaultAdvisoryDB     = "data/advisory.db"
	defaultFeeTier        = "streaming"
	defaultPlansDB        = "data/plans.db"
	defaultAlertCooldown  = 900
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Indicator.applyDefaults(keys)
	c.Regime.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
	c.Plans.applyDefaults(keys)
	c.Advisor.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.data_dir", &a.DataDir, defaultAppDataDir),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "market.cache_ttl_seconds",
			need:  func() bool { return m.CacheTTLSeconds <= 0 },
			apply: func() { m.CacheTTLSeconds = defaultMarketCacheTTL },
		},
	)
	for i := range m.Sources {
		src := &m.Sources[i]
		if strings.EqualFold(src.Name, "settrade") && strings.TrimSpace(src.Suffix) == "" {
			src.Suffix = defaultMarketSuffix
		}
		if src.DepthLevels <= 0 {
			src.DepthLevels = defaultMarketDepth
		}
	}
	if strings.TrimSpace(m.ActiveSource) == "" {
		m.ActiveSource = firstEnabledMarket(m.Sources)
	}
}

func (i *IndicatorConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("indicator.interval", &i.Interval, defaultInterval),
		fieldDefault{
			key:   "indicator.lookback",
			need:  func() bool { return i.Lookback <= 0 },
			apply: func() { i.Lookback = defaultLookback },
		},
	)
}

func (r *RegimeConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("regime.rules_path", &r.RulesPath, defaultRulesPath),
	)
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ledger.path", &l.Path, defaultLedgerPath),
		stringFieldDefault("ledger.advisory_log_path", &l.AdvisoryLogPath, defaultAdvisoryDB),
		stringFieldDefault("ledger.default_fee_tier", &l.DefaultFeeTier, defaultFeeTier),
	)
}

func (p *PlansConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("plans.db_path", &p.DBPath, defaultPlansDB),
	)
}

func (a *AdvisorConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "advisor.alert_cooldown_seconds",
			need:  func() bool { return a.AlertCooldownSeconds <= 0 },
			apply: func() { a.AlertCooldownSeconds = defaultAlertCooldown },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func firstEnabledMarket(sources []MarketSource) string {
	for _, src := range sources {
		name := strings.TrimSpace(src.Name)
		if src.Enabled && name != "" {
			return name
		}
	}
	if len(sources) > 0 {
		if name := strings.TrimSpace(sources[0].Name); name != "" {
			return name
		}
	}
	return defaultMarketName
}
