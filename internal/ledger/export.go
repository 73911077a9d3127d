package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	symbolpkg "github.com/Maxnito501/geminibo/internal/pkg/symbol"
)

// 持久化文件形状：{"history":[TradeRecord...],"watchlist":[symbol...]}。
// 数值字段必须是 JSON number；导入校验整体通过才落地，绝不部分加载。

type ledgerFile struct {
	History   []TradeRecord `json:"history"`
	Watchlist []string      `json:"watchlist"`
}

const ledgerSchemaJSON = `{
  "type": "object",
  "required": ["history", "watchlist"],
  "properties": {
    "history": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "symbol", "fee_tier", "buy_qty", "buy_price", "sell_qty", "sell_price", "fees_paid", "net_profit", "closed_at"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "symbol": {"type": "string", "minLength": 1},
          "fee_tier": {"type": "string"},
          "buy_qty": {"type": "number"},
          "buy_price": {"type": "number"},
          "sell_qty": {"type": "number"},
          "sell_price": {"type": "number"},
          "fees_paid": {"type": "number"},
          "net_profit": {"type": "number"},
          "closed_at": {"type": "string"},
          "note": {"type": "string"}
        }
      }
    },
    "watchlist": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    }
  },
  "additionalProperties": false
}`

var ledgerSchema = jsonschema.MustCompileString("ledger.schema.json", ledgerSchemaJSON)

// Export 序列化全部成交记录与自选股，顺序与落账顺序一致。
func (b *Book) Export() ([]byte, error) {
	b.mu.Lock()
	file := ledgerFile{
		History:   append([]TradeRecord(nil), b.history...),
		Watchlist: append([]string(nil), b.watchlist...),
	}
	b.mu.Unlock()
	if file.History == nil {
		file.History = []TradeRecord{}
	}
	if file.Watchlist == nil {
		file.Watchlist = []string{}
	}
	return json.MarshalIndent(file, "", "  ")
}

// Import 整体替换账本的历史与自选股。形状不合法时返回 ErrMalformedLedger，
// 账本保持原状——调用方可选择回退到空账本。
func (b *Book) Import(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLedger, err)
	}
	if err := ledgerSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLedger, err)
	}
	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLedger, err)
	}
	for i, rec := range file.History {
		if rec.FeeTier != "" && !rec.FeeTier.Valid() {
			return fmt.Errorf("%w: history[%d] unknown fee tier %q", ErrMalformedLedger, i, rec.FeeTier)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = file.History
	b.watchlist = b.watchlist[:0]
	b.watchSet = make(map[string]struct{}, len(file.Watchlist))
	for _, sym := range file.Watchlist {
		// 手工编辑过的文件可能带小写或后缀，统一口径后去重。
		sym = symbolpkg.Normalize(sym)
		if sym == "" {
			continue
		}
		if _, dup := b.watchSet[sym]; dup {
			continue
		}
		b.watchSet[sym] = struct{}{}
		b.watchlist = append(b.watchlist, sym)
	}
	return nil
}
