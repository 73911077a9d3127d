package symbol

import "strings"

// Normalize 统一 symbol 写法：去空白、大写、去掉交易所后缀（如 SIRI.BK → SIRI）。
func Normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if idx := strings.Index(s, "."); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// WithSuffix 为 SET 行情源拼接交易所后缀（SIRI + .BK → SIRI.BK）。
// suffix 为空时原样返回。
func WithSuffix(s, suffix string) string {
	s = Normalize(s)
	suffix = strings.TrimSpace(suffix)
	if s == "" || suffix == "" {
		return s
	}
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	return s + suffix
}

// ToBinance 去掉分隔符，转为币安风格（BTC/USDT → BTCUSDT）。
func ToBinance(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}
