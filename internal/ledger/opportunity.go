package ledger

// 中文说明：
// 「防猪头」报告：拿每笔已平仓的卖出价对比当前现价，量化卖飞了多少。
// 纯读侧，对 TradeRecord 零改动。

// Verdict 是对一次离场的事后评价。
type Verdict string

const (
	VerdictSoldTooEarly Verdict = "sold_too_early"
	VerdictGoodExit     Verdict = "good_exit"
	VerdictNoPrice      Verdict = "no_price"
)

// MissedEntry 是单笔记录的卖飞评估。
type MissedEntry struct {
	RecordID     string  `json:"record_id"`
	Symbol       string  `json:"symbol"`
	SellPrice    float64 `json:"sell_price"`
	SellQty      float64 `json:"sell_qty"`
	LivePrice    float64 `json:"live_price"`
	MissedProfit float64 `json:"missed_profit"`
	Verdict      Verdict `json:"verdict"`
}

// MissedProfitReport 对全部历史记录生成卖飞评估。
// livePrices 按 symbol 提供现价；缺价的记录标记 no_price 而不是报错。
func (b *Book) MissedProfitReport(livePrices map[string]float64) []MissedEntry {
	history := b.History()
	out := make([]MissedEntry, 0, len(history))
	for _, rec := range history {
		entry := MissedEntry{
			RecordID:  rec.ID,
			Symbol:    rec.Symbol,
			SellPrice: rec.SellPrice,
			SellQty:   rec.SellQty,
		}
		live, ok := livePrices[rec.Symbol]
		if !ok || live <= 0 {
			entry.Verdict = VerdictNoPrice
			out = append(out, entry)
			continue
		}
		entry.LivePrice = live
		missed := (live - rec.SellPrice) * rec.SellQty
		if missed > 0 {
			entry.MissedProfit = missed
			entry.Verdict = VerdictSoldTooEarly
		} else {
			entry.MissedProfit = 0
			entry.Verdict = VerdictGoodExit
		}
		out = append(out, entry)
	}
	return out
}
