package model

// 价格来源标识常量
const (
	// SourceStatic 配置内的静态价格序列
	SourceStatic = "static"
	// SourceFile 文本文件（每行一个价格）
	SourceFile = "file"
	// SourceBinance Binance aggTrade WebSocket 行情
	SourceBinance = "binance"
)

// Tick 单条价格观测
type Tick struct {
	// Source 价格来源
	Source string
	// Symbol 交易对，如 BTCUSDT
	Symbol string
	// Price 成交价
	Price float64
	// ExchTsUnixMs 交易所时间戳（毫秒），静态/文件来源为 0
	ExchTsUnixMs int64
	// ArrivedAtUnixNs 本机收到该价格的时间（纳秒）
	ArrivedAtUnixNs int64
}
