package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Indicator.validate(); err != nil {
		return err
	}
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Goal.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (m *MarketConfig) validate() error {
	seen := make(map[string]bool, len(m.Sources))
	for _, src := range m.Sources {
		name := strings.ToLower(strings.TrimSpace(src.Name))
		if name == "" {
			return fmt.Errorf("market.sources contains entry without name")
		}
		if seen[name] {
			return fmt.Errorf("market.sources contains duplicate name: %s", name)
		}
		seen[name] = true
		switch name {
		case "settrade", "binance":
		default:
			return fmt.Errorf("market.sources.%s: unknown source (expect settrade or binance)", name)
		}
	}
	return nil
}

func (i *IndicatorConfig) validate() error {
	if i.RSIPeriod < 0 {
		return fmt.Errorf("indicator.rsi_period must be >= 0")
	}
	if i.RVOLWindow < 0 {
		return fmt.Errorf("indicator.rvol_window must be >= 0")
	}
	if i.Lookback < 0 {
		return fmt.Errorf("indicator.lookback must be >= 0")
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.DefaultFeeTier)) {
	case "streaming", "dime_standard", "dime_free":
		return nil
	default:
		return fmt.Errorf("ledger.default_fee_tier: unknown tier %q", l.DefaultFeeTier)
	}
}

func (g *GoalConfig) validate() error {
	if g.Target < 0 {
		return fmt.Errorf("goal.target must be >= 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" {
		return fmt.Errorf("notify.telegram.bot_token required when enabled")
	}
	if strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram.chat_id required when enabled")
	}
	return nil
}
