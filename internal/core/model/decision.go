// Package model 定义信号生成器中使用的核心数据结构。
package model

// Decision 单次评估的交易决策
type Decision string

const (
	// DecisionBuy 价格低于均值超过阈值
	DecisionBuy Decision = "buy"
	// DecisionSell 价格高于均值超过阈值
	DecisionSell Decision = "sell"
	// DecisionHold 偏离未超过阈值（含 NaN 比较）
	DecisionHold Decision = "hold"
)

// Action 返回用于展示的动作名称: Buy / Sell / Hold
func (d Decision) Action() string {
	switch d {
	case DecisionBuy:
		return "Buy"
	case DecisionSell:
		return "Sell"
	default:
		return "Hold"
	}
}

// IsAction 是否为需要执行的动作（非 Hold）
func (d Decision) IsAction() bool {
	return d == DecisionBuy || d == DecisionSell
}

// DecisionRecord 单次评估的审计记录（写入 decisions.jsonl）
type DecisionRecord struct {
	// TsUnixNs 评估时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// Source 价格来源: static, file, binance
	Source string `json:"source"`
	// Symbol 交易对
	Symbol string `json:"symbol"`
	// Price 本次输入价格
	Price float64 `json:"price"`
	// Mean 插入本次价格后的窗口均值
	Mean float64 `json:"mean"`
	// Reference 用于比较的均值（post 模式下等于 Mean）
	Reference float64 `json:"reference"`
	// WindowLen 当前窗口长度
	WindowLen int `json:"window_len"`
	// Decision 决策结果
	Decision Decision `json:"decision"`
	// MeanMode 均值模式: post 或 pre
	MeanMode string `json:"mean_mode"`
}
