package config

import "strings"

// Config 是 GeminiBo 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Market    MarketConfig    `toml:"market"`
	Indicator IndicatorConfig `toml:"indicator"`
	Regime    RegimeConfig    `toml:"regime"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Plans     PlansConfig     `toml:"plans"`
	Goal      GoalConfig      `toml:"goal"`
	Advisor   AdvisorConfig   `toml:"advisor"`
	Notify    NotifyConfig    `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	DataDir  string `toml:"data_dir"`
}

type MarketConfig struct {
	ActiveSource    string         `toml:"active_source"`
	CacheTTLSeconds int            `toml:"cache_ttl_seconds"`
	Sources         []MarketSource `toml:"sources"`
}

type MarketSource struct {
	Name        string `toml:"name"`
	Enabled     bool   `toml:"enabled"`
	RESTBaseURL string `toml:"rest_base_url"`
	AppID       string `toml:"app_id"`
	AppSecret   string `toml:"app_secret"`
	Suffix      string `toml:"suffix"`
	DepthLevels int    `toml:"depth_levels"`
}

func (m MarketConfig) ResolveActiveSource() MarketSource {
	if len(m.Sources) == 0 {
		return MarketSource{Name: "settrade", Enabled: true, Suffix: ".BK"}
	}
	active := strings.ToLower(strings.TrimSpace(m.ActiveSource))
	var fallback MarketSource
	for _, src := range m.Sources {
		if fallback.Name == "" {
			fallback = src
		}
		if !src.Enabled {
			continue
		}
		if active == "" || strings.ToLower(src.Name) == active {
			return src
		}
	}
	return fallback
}

type IndicatorConfig struct {
	RSIPeriod   int    `toml:"rsi_period"`
	RVOLWindow  int    `toml:"rvol_window"`
	DriftWindow int    `toml:"drift_window"`
	Interval    string `toml:"interval"`
	Lookback    int    `toml:"lookback"`
}

type RegimeConfig struct {
	RulesPath string `toml:"rules_path"`
}

type LedgerConfig struct {
	Path            string `toml:"path"`
	AdvisoryLogPath string `toml:"advisory_log_path"`
	DefaultFeeTier  string `toml:"default_fee_tier"`
}

type PlansConfig struct {
	DBPath string `toml:"db_path"`
}

type GoalConfig struct {
	Target float64 `toml:"target"`
}

type AdvisorConfig struct {
	AlertCooldownSeconds int `toml:"alert_cooldown_seconds"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
