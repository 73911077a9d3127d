package ledger

import "errors"

var (
	// ErrInvalidInput 数量/价格/档位不合法，状态未被触碰。
	ErrInvalidInput = errors.New("ledger: invalid input")
	// ErrInsufficientHoldings 卖出数量超过持仓，整单拒绝。
	ErrInsufficientHoldings = errors.New("ledger: insufficient holdings")
	// ErrRecordNotFound 指定的成交记录不存在。
	ErrRecordNotFound = errors.New("ledger: record not found")
	// ErrMalformedLedger 导入数据形状不合法，整体拒绝。
	ErrMalformedLedger = errors.New("ledger: malformed ledger data")
)
