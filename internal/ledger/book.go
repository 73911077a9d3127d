package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	symbolpkg "github.com/Maxnito501/geminibo/internal/pkg/symbol"
)

// 中文说明：
// 交易账本：持仓（加权平均成本）、已平仓记录（append-only）与自选股。
// 所有变更操作先校验后落账，要么全部生效要么完全不动；
// 单把互斥锁串行化写入，保证平均成本更新对并发调用是原子的。

// TradeRecord 在一次卖出落账时创建，此后不可变。
type TradeRecord struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	FeeTier   FeeTier   `json:"fee_tier"`
	BuyQty    float64   `json:"buy_qty"`
	BuyPrice  float64   `json:"buy_price"`
	SellQty   float64   `json:"sell_qty"`
	SellPrice float64   `json:"sell_price"`
	FeesPaid  float64   `json:"fees_paid"`
	NetProfit float64   `json:"net_profit"`
	ClosedAt  time.Time `json:"closed_at"`
	Note      string    `json:"note,omitempty"`
}

// Book 是账本聚合根。显式传递，不依赖任何包级可变状态。
type Book struct {
	mu        sync.Mutex
	positions map[string]*Position
	history   []TradeRecord
	watchlist []string
	watchSet  map[string]struct{}
}

func NewBook() *Book {
	return &Book{
		positions: make(map[string]*Position),
		watchSet:  make(map[string]struct{}),
	}
}

// RecordBuy 落一笔买入：追加批次、计提买入费、重算加权平均成本。
func (b *Book) RecordBuy(symbol string, qty, price float64, tier FeeTier, at time.Time) (View, error) {
	symbol = symbolpkg.Normalize(symbol)
	if symbol == "" {
		return View{}, fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}
	if qty <= 0 {
		return View{}, fmt.Errorf("%w: quantity %v", ErrInvalidInput, qty)
	}
	if price < 0 {
		return View{}, fmt.Errorf("%w: price %v", ErrInvalidInput, price)
	}
	if !tier.Valid() {
		return View{}, fmt.Errorf("%w: fee tier %q", ErrInvalidInput, tier)
	}
	if at.IsZero() {
		at = time.Now()
	}

	dQty := decimal.NewFromFloat(qty)
	dPrice := decimal.NewFromFloat(price)
	fee := dQty.Mul(dPrice).Mul(tier.Rate())

	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		pos = newPosition(symbol)
		b.positions[symbol] = pos
	}
	pos.addLot(dQty, dPrice, fee, at)
	return pos.view(), nil
}

// RecordSell 落一笔卖出。卖出量超过持仓时整单拒绝：
// 不产生 TradeRecord，持仓保持原状。
func (b *Book) RecordSell(symbol string, qty, price float64, tier FeeTier, closedAt time.Time, note string) (TradeRecord, error) {
	symbol = symbolpkg.Normalize(symbol)
	if symbol == "" {
		return TradeRecord{}, fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}
	if qty <= 0 {
		return TradeRecord{}, fmt.Errorf("%w: quantity %v", ErrInvalidInput, qty)
	}
	if price < 0 {
		return TradeRecord{}, fmt.Errorf("%w: price %v", ErrInvalidInput, price)
	}
	if !tier.Valid() {
		return TradeRecord{}, fmt.Errorf("%w: fee tier %q", ErrInvalidInput, tier)
	}
	if closedAt.IsZero() {
		closedAt = time.Now()
	}

	dQty := decimal.NewFromFloat(qty)
	dPrice := decimal.NewFromFloat(price)

	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok || dQty.GreaterThan(pos.Quantity) {
		held := decimal.Zero
		if ok {
			held = pos.Quantity
		}
		return TradeRecord{}, fmt.Errorf("%w: sell %v > held %v (%s)", ErrInsufficientHoldings, qty, held, symbol)
	}

	gross := dQty.Mul(dPrice)
	cost := dQty.Mul(pos.WeightedAvgCost)
	sellFee := gross.Mul(tier.Rate())
	buyFee := pos.allocatedBuyFee(dQty)
	net := gross.Sub(cost).Sub(sellFee).Sub(buyFee)

	rec := TradeRecord{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		FeeTier:   tier,
		BuyQty:    dQty.InexactFloat64(),
		BuyPrice:  pos.WeightedAvgCost.InexactFloat64(),
		SellQty:   dQty.InexactFloat64(),
		SellPrice: dPrice.InexactFloat64(),
		FeesPaid:  sellFee.Add(buyFee).InexactFloat64(),
		NetProfit: net.InexactFloat64(),
		ClosedAt:  closedAt,
		Note:      note,
	}

	pos.deplete(dQty)
	if !pos.Quantity.IsPositive() {
		delete(b.positions, symbol)
	}
	b.history = append(b.history, rec)
	return rec, nil
}

// Position 返回某 symbol 的持仓快照。
func (b *Book) Position(symbol string) (View, bool) {
	symbol = symbolpkg.Normalize(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, ok := b.positions[symbol]
	if !ok {
		return View{}, false
	}
	return pos.view(), true
}

// Positions 返回全部持仓快照，按 symbol 排序。
func (b *Book) Positions() []View {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]View, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos.view())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// History 返回按落账顺序排列的已平仓记录副本。
func (b *Book) History() []TradeRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TradeRecord, len(b.history))
	copy(out, b.history)
	return out
}

// DeleteRecord 删除一条成交记录。仅限用户显式操作。
func (b *Book) DeleteRecord(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, rec := range b.history {
		if rec.ID == id {
			b.history = append(b.history[:i], b.history[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// TotalRealizedProfit 返回全部已平仓记录的净利润之和。
func (b *Book) TotalRealizedProfit() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return sumNetProfit(b.history)
}

func sumNetProfit(records []TradeRecord) float64 {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(decimal.NewFromFloat(rec.NetProfit))
	}
	return total.InexactFloat64()
}

// AddSymbol 把 symbol 加入自选（集合语义，统一大写，保留插入顺序）。
// 已存在时返回 false 且不产生任何变化。
func (b *Book) AddSymbol(symbol string) bool {
	symbol = symbolpkg.Normalize(symbol)
	if symbol == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.watchSet[symbol]; dup {
		return false
	}
	b.watchSet[symbol] = struct{}{}
	b.watchlist = append(b.watchlist, symbol)
	return true
}

// RemoveSymbol 从自选移除。
func (b *Book) RemoveSymbol(symbol string) bool {
	symbol = symbolpkg.Normalize(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchSet[symbol]; !ok {
		return false
	}
	delete(b.watchSet, symbol)
	for i, s := range b.watchlist {
		if s == symbol {
			b.watchlist = append(b.watchlist[:i], b.watchlist[i+1:]...)
			break
		}
	}
	return true
}

// Watchlist 按插入顺序返回自选股副本。
func (b *Book) Watchlist() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.watchlist))
	copy(out, b.watchlist)
	return out
}

// GoalProgress 返回累计净利润相对目标的进度，截断到 [0,1]。
// target<=0 时视为未设定目标，返回 0。
func (b *Book) GoalProgress(target float64) float64 {
	if target <= 0 {
		return 0
	}
	progress := b.TotalRealizedProfit() / target
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}
