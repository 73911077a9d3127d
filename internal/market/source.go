package market

import (
	"context"
	"errors"
)

// ErrNoData 表示行情源没有返回任何数据（停牌、市场休市或 symbol 不存在）。
// 上层据此降级为「等待数据」，而不是中断。
var ErrNoData = errors.New("market: no data")

// Source 抽象行情提供方：历史 K 线 + 即时报价。
type Source interface {
	// FetchBars 返回按时间升序排列的 K 线，lookback 为期望的条数上限。
	FetchBars(ctx context.Context, symbol, interval string, lookback int) ([]Bar, error)

	// FetchSnapshot 返回带盘口档位的即时报价。
	FetchSnapshot(ctx context.Context, symbol string) (Snapshot, error)

	Name() string
}
