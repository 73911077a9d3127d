package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 中文说明：
// 交易计划：入场价 / 目标价 / 止损价 + 持仓时间规则。
// 计划只在创建时校验一次，之后由 Check 对照现价与持有天数给出处置建议。

// Status 表示计划的生命周期状态。
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Plan 是一份持久化的交易计划。
type Plan struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Shares      float64   `json:"shares"`
	EntryPrice  float64   `json:"entry_price"`
	TargetPrice float64   `json:"target_price"`
	StopLoss    float64   `json:"stop_loss"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Note        string    `json:"note,omitempty"`
}

// New 校验并创建计划。目标价必须高于入场价，止损必须低于入场价。
func New(symbol string, shares, entry, target, stop float64, now time.Time) (Plan, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Plan{}, fmt.Errorf("plan: symbol 不能为空")
	}
	if shares <= 0 {
		return Plan{}, fmt.Errorf("plan: shares 必须大于 0")
	}
	if entry <= 0 {
		return Plan{}, fmt.Errorf("plan: entry price 必须大于 0")
	}
	if target <= entry {
		return Plan{}, fmt.Errorf("plan: target %v 必须高于 entry %v", target, entry)
	}
	if stop >= entry || stop < 0 {
		return Plan{}, fmt.Errorf("plan: stop loss %v 必须低于 entry %v 且非负", stop, entry)
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Plan{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Shares:      shares,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
		Status:      StatusActive,
		CreatedAt:   now,
	}, nil
}

// RRRatio 返回盈亏比 = 预期收益 / 承担风险。风险为 0 时返回 0。
func (p Plan) RRRatio() float64 {
	risk := (p.EntryPrice - p.StopLoss) * p.Shares
	if risk <= 0 {
		return 0
	}
	reward := (p.TargetPrice - p.EntryPrice) * p.Shares
	return reward / risk
}

// Action 是风险检查产出的处置建议。
type Action string

const (
	// ActionPriceStop 已跌破止损，立即离场。
	ActionPriceStop Action = "price_stop"
	// ActionTimeStop 持有超期且价格未脱离成本区，考虑换股。
	ActionTimeStop Action = "time_stop"
	// ActionTakeProfit 已到目标价。
	ActionTakeProfit Action = "take_profit"
	// ActionHold 状态正常，继续持有。
	ActionHold Action = "hold"
)

// CheckResult 是一次风险检查的输出。
type CheckResult struct {
	PlanID    string  `json:"plan_id"`
	Symbol    string  `json:"symbol"`
	Action    Action  `json:"action"`
	LivePrice float64 `json:"live_price"`
	DaysHeld  int     `json:"days_held"`
	LossPct   float64 `json:"loss_pct,omitempty"`
	Detail    string  `json:"detail"`
}

// timeStopDays 为持有时间规则的默认天数（五日未走强即换手）。
const timeStopDays = 5

// Check 对照现价与当前时间评估一份计划。优先级：止损 > 目标 > 时间止损。
func Check(p Plan, livePrice float64, now time.Time) CheckResult {
	res := CheckResult{PlanID: p.ID, Symbol: p.Symbol, LivePrice: livePrice}
	res.DaysHeld = int(now.Sub(p.CreatedAt).Hours() / 24)

	switch {
	case livePrice <= p.StopLoss:
		res.Action = ActionPriceStop
		if p.EntryPrice > 0 {
			res.LossPct = (p.EntryPrice - livePrice) / p.EntryPrice * 100
		}
		res.Detail = fmt.Sprintf("below stop %.2f, down %.2f%%", p.StopLoss, res.LossPct)
	case livePrice >= p.TargetPrice:
		res.Action = ActionTakeProfit
		res.Detail = fmt.Sprintf("target %.2f reached", p.TargetPrice)
	case res.DaysHeld >= timeStopDays && livePrice <= p.EntryPrice:
		res.Action = ActionTimeStop
		res.Detail = fmt.Sprintf("held %d days without progress", res.DaysHeld)
	default:
		res.Action = ActionHold
		res.Detail = "plan on track"
	}
	return res
}
