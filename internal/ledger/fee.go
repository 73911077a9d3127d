package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FeeTier 是券商费率档位。费率按每腿成交额计收。
type FeeTier string

const (
	// FeeTierStreaming 自助下单（Streaming App）.
	FeeTierStreaming FeeTier = "streaming"
	// FeeTierDimeStandard Dime 标准户。
	FeeTierDimeStandard FeeTier = "dime_standard"
	// FeeTierDimeFree Dime 免佣户。
	FeeTierDimeFree FeeTier = "dime_free"
)

var feeRates = map[FeeTier]decimal.Decimal{
	FeeTierStreaming:    decimal.RequireFromString("0.00168"),
	FeeTierDimeStandard: decimal.RequireFromString("0.001605"),
	FeeTierDimeFree:     decimal.Zero,
}

// Rate 返回该档位的费率（0.00168 = 0.168%）。未知档位按 0 处理。
func (t FeeTier) Rate() decimal.Decimal {
	if rate, ok := feeRates[t]; ok {
		return rate
	}
	return decimal.Zero
}

// Valid 报告档位是否在费率表内。
func (t FeeTier) Valid() bool {
	_, ok := feeRates[t]
	return ok
}

// ParseFeeTier 从用户输入解析档位。
func ParseFeeTier(s string) (FeeTier, error) {
	tier := FeeTier(strings.ToLower(strings.TrimSpace(s)))
	if !tier.Valid() {
		return "", fmt.Errorf("%w: fee tier %q", ErrInvalidInput, s)
	}
	return tier, nil
}

// FeeTiers 列出全部档位（展示用）。
func FeeTiers() []FeeTier {
	return []FeeTier{FeeTierStreaming, FeeTierDimeStandard, FeeTierDimeFree}
}
