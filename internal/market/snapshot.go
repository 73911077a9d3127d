package market

// DepthLevel 表示盘口单档的挂单量（已聚合，不做完整订单簿还原）。
type DepthLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// Snapshot 表示单个 symbol 的即时报价切片。
// Bids/Offers 按档位排序（1 档在前），通常 1~3 档。
type Snapshot struct {
	Symbol      string       `json:"symbol"`
	LastPrice   float64      `json:"last_price"`
	OpenPrice   float64      `json:"open_price"`
	PrevClose   float64      `json:"prev_close"`
	SessionHigh float64      `json:"session_high"`
	SessionLow  float64      `json:"session_low"`
	Bids        []DepthLevel `json:"bids"`
	Offers      []DepthLevel `json:"offers"`
	UpdatedAt   int64        `json:"updated_at"`
}

// BidVolume 汇总买方挂单量（负数档按 0 计）。
func (s Snapshot) BidVolume() float64 {
	return sumVolume(s.Bids)
}

// OfferVolume 汇总卖方挂单量。
func (s Snapshot) OfferVolume() float64 {
	return sumVolume(s.Offers)
}

func sumVolume(levels []DepthLevel) float64 {
	total := 0.0
	for _, lv := range levels {
		if lv.Volume > 0 {
			total += lv.Volume
		}
	}
	return total
}

// ChangePct 返回相对参考价的涨跌幅（百分比）。优先使用昨收，其次开盘价。
func (s Snapshot) ChangePct() float64 {
	ref := s.PrevClose
	if ref <= 0 {
		ref = s.OpenPrice
	}
	if ref <= 0 || s.LastPrice <= 0 {
		return 0
	}
	return (s.LastPrice - ref) / ref * 100
}
