package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot 是一次买入批次。只在买入时追加；部分卖出按比例缩减所有批次。
type Lot struct {
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	AcquiredAt time.Time       `json:"acquired_at"`
}

// Position 持有一个 symbol 的全部批次与加权平均成本。
// 不变式：WeightedAvgCost = Σ(lot.Quantity×lot.UnitCost) / Σ(lot.Quantity)，
// 每次买入后重算；总量归零时 Position 从账本移除。
type Position struct {
	Symbol          string          `json:"symbol"`
	Lots            []Lot           `json:"lots"`
	Quantity        decimal.Decimal `json:"quantity"`
	WeightedAvgCost decimal.Decimal `json:"weighted_avg_cost"`

	// 买入侧费用分摊口径：每次部分卖出按 卖出量/累计买入量 分摊。
	TotalBought decimal.Decimal `json:"total_bought"`
	BuyFees     decimal.Decimal `json:"buy_fees"`
}

func newPosition(symbol string) *Position {
	return &Position{Symbol: symbol}
}

// addLot 追加批次并重算加权平均成本。
func (p *Position) addLot(qty, price, fee decimal.Decimal, at time.Time) {
	p.Lots = append(p.Lots, Lot{Quantity: qty, UnitCost: price, AcquiredAt: at})
	p.Quantity = p.Quantity.Add(qty)
	p.TotalBought = p.TotalBought.Add(qty)
	p.BuyFees = p.BuyFees.Add(fee)
	p.recomputeAvgCost()
}

func (p *Position) recomputeAvgCost() {
	total := decimal.Zero
	cost := decimal.Zero
	for _, lot := range p.Lots {
		total = total.Add(lot.Quantity)
		cost = cost.Add(lot.Quantity.Mul(lot.UnitCost))
	}
	if total.IsPositive() {
		p.WeightedAvgCost = cost.Div(total)
	} else {
		p.WeightedAvgCost = decimal.Zero
	}
}

// deplete 按加权平均口径减仓：所有批次等比缩减，平均成本不变。
// 调用方需保证 qty <= p.Quantity。
func (p *Position) deplete(qty decimal.Decimal) {
	remaining := p.Quantity.Sub(qty)
	if remaining.LessThanOrEqual(decimal.Zero) {
		p.Quantity = decimal.Zero
		p.Lots = nil
		return
	}
	factor := remaining.Div(p.Quantity)
	for i := range p.Lots {
		p.Lots[i].Quantity = p.Lots[i].Quantity.Mul(factor)
	}
	p.Quantity = remaining
}

// allocatedBuyFee 返回本次卖出应分摊的买入侧费用。
func (p *Position) allocatedBuyFee(qty decimal.Decimal) decimal.Decimal {
	if !p.TotalBought.IsPositive() {
		return decimal.Zero
	}
	return p.BuyFees.Mul(qty).Div(p.TotalBought)
}

// View 是对外暴露的只读持仓切片（HTTP/报表用）。
type View struct {
	Symbol          string  `json:"symbol"`
	Quantity        float64 `json:"quantity"`
	WeightedAvgCost float64 `json:"weighted_avg_cost"`
	Lots            int     `json:"lots"`
}

func (p *Position) view() View {
	return View{
		Symbol:          p.Symbol,
		Quantity:        p.Quantity.InexactFloat64(),
		WeightedAvgCost: p.WeightedAvgCost.InexactFloat64(),
		Lots:            len(p.Lots),
	}
}
