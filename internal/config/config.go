// Package config 负责加载和验证 YAML 配置文件。
// 提供信号生成器所需的配置项：策略参数、价格来源、输出设置。
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 均值模式
const (
	// MeanModePost 与插入当前价格后的窗口均值比较
	MeanModePost = "post"
	// MeanModePre 与插入当前价格前的窗口均值比较
	MeanModePre = "pre"
)

// 价格来源
const (
	FeedStatic  = "static"
	FeedFile    = "file"
	FeedBinance = "binance"
)

// DemoPrices 内置演示价格序列
var DemoPrices = []float64{100.0, 95.0, 110.0, 105.0, 98.0, 102.0, 97.0, 103.0, 100.0, 98.0, 105.0}

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Strategy 策略参数配置
	Strategy StrategyConfig `yaml:"strategy"`
	// Feed 价格来源配置
	Feed FeedConfig `yaml:"feed"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// StrategyConfig 策略参数配置
type StrategyConfig struct {
	// WindowSize 滑动窗口大小（最多保留的价格个数），必须 >= 1
	WindowSize int `yaml:"window_size"`
	// Threshold 触发信号所需的最小偏离（价格单位），必须 >= 0
	Threshold float64 `yaml:"threshold"`
	// MeanMode 均值模式: post（默认）或 pre
	MeanMode string `yaml:"mean_mode"`
}

// FeedConfig 价格来源配置
type FeedConfig struct {
	// Source 来源类型: static, file, binance
	Source string `yaml:"source"`
	// Symbol 交易对标识（binance 来源必填）
	Symbol string `yaml:"symbol"`
	// Prices static 来源的价格序列
	Prices []float64 `yaml:"prices"`
	// File file 来源的文件路径
	File string `yaml:"file"`
	// Binance binance 来源的 WebSocket 配置
	Binance WSConfig `yaml:"binance"`
}

// WSConfig WebSocket 连接配置
type WSConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
	// ReconnectBaseMs 重连退避基础间隔（毫秒）
	ReconnectBaseMs int `yaml:"reconnect_base_ms"`
	// ReconnectMaxMs 重连退避最大间隔（毫秒）
	ReconnectMaxMs int `yaml:"reconnect_max_ms"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// DecisionsEnabled 是否输出每次评估记录
	DecisionsEnabled bool `yaml:"decisions_enabled"`
	// MetricsEnabled 是否输出决策统计快照
	MetricsEnabled bool `yaml:"metrics_enabled"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// Demo 返回内置演示配置
// 窗口 10、阈值 0.2，使用静态演示价格序列。
func Demo() *Config {
	cfg := &Config{
		Strategy: StrategyConfig{
			WindowSize: 10,
			Threshold:  0.2,
		},
		Feed: FeedConfig{
			Source: FeedStatic,
			Prices: append([]float64(nil), DemoPrices...),
		},
	}
	cfg.setDefaults()
	return cfg
}

// setDefaults 设置配置默认值
// WindowSize 不设默认值：0 视为配置错误。
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "mean-reversion-signal"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Strategy.MeanMode == "" {
		c.Strategy.MeanMode = MeanModePost
	}

	if c.Feed.Source == "" {
		c.Feed.Source = FeedStatic
	}
	if c.Feed.Symbol == "" && c.Feed.Source != FeedBinance {
		c.Feed.Symbol = "DEMO"
	}
	if c.Feed.Binance.URL == "" {
		c.Feed.Binance.URL = "wss://fstream.binance.com/ws"
	}
	if c.Feed.Binance.ReadTimeoutMs == 0 {
		c.Feed.Binance.ReadTimeoutMs = 30000 // 30 秒
	}
	if c.Feed.Binance.PingIntervalMs == 0 {
		c.Feed.Binance.PingIntervalMs = 15000 // 15 秒
	}
	if c.Feed.Binance.ReconnectBaseMs == 0 {
		c.Feed.Binance.ReconnectBaseMs = 1000
	}
	if c.Feed.Binance.ReconnectMaxMs == 0 {
		c.Feed.Binance.ReconnectMaxMs = 30000
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 返回: 若配置无效则返回汇总了所有问题的错误
func (c *Config) Validate() error {
	var errs []string

	// 验证策略参数
	if err := c.Strategy.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	// 验证价格来源
	switch c.Feed.Source {
	case FeedStatic:
		if len(c.Feed.Prices) == 0 {
			errs = append(errs, "feed.prices: static 来源至少需要一个价格")
		}
		for i, p := range c.Feed.Prices {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				errs = append(errs, fmt.Sprintf("feed.prices[%d]: 价格必须为有限数", i))
			}
		}
	case FeedFile:
		if c.Feed.File == "" {
			errs = append(errs, "feed.file: file 来源的文件路径不能为空")
		}
	case FeedBinance:
		if c.Feed.Symbol == "" {
			errs = append(errs, "feed.symbol: binance 来源必须指定交易对")
		}
		if c.Feed.Binance.URL == "" {
			errs = append(errs, "feed.binance.url: WebSocket 地址不能为空")
		}
		if c.Feed.Binance.ReadTimeoutMs < 0 {
			errs = append(errs, "feed.binance.read_timeout_ms: 读取超时不能为负数")
		}
		if c.Feed.Binance.ReconnectBaseMs <= 0 || c.Feed.Binance.ReconnectMaxMs < c.Feed.Binance.ReconnectBaseMs {
			errs = append(errs, "feed.binance.reconnect_*: 需满足 0 < reconnect_base_ms <= reconnect_max_ms")
		}
	default:
		errs = append(errs, fmt.Sprintf("feed.source: 无效的来源 '%s'，有效值: static, file, binance", c.Feed.Source))
	}

	if c.Output.BufferSize < 0 {
		errs = append(errs, "output.buffer_size: 缓冲区大小不能为负数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Validate 验证策略参数
func (s StrategyConfig) Validate() error {
	var errs []string
	if s.WindowSize < 1 {
		errs = append(errs, fmt.Sprintf("strategy.window_size: 窗口大小必须 >= 1，当前值: %d", s.WindowSize))
	}
	if math.IsNaN(s.Threshold) || math.IsInf(s.Threshold, 0) || s.Threshold < 0 {
		errs = append(errs, fmt.Sprintf("strategy.threshold: 阈值必须为非负有限数，当前值: %f", s.Threshold))
	}
	switch s.MeanMode {
	case "", MeanModePost, MeanModePre:
	default:
		errs = append(errs, fmt.Sprintf("strategy.mean_mode: 无效的均值模式 '%s'，有效值: post, pre", s.MeanMode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n  - "))
	}
	return nil
}
