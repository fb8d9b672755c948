// Package fastparse 提供价格字符串解析函数。
// 热路径上避免 fmt，直接使用 strconv。
package fastparse

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNonFinite 解析结果为 NaN 或 ±Inf
var ErrNonFinite = errors.New("数值必须为有限数")

// ParseFloat 解析浮点数字符串，如 "12345.67"
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseFinite 解析浮点数并拒绝 NaN/Inf
// 行情来源只应产生有限价格，"NaN"、"Inf" 等文本视为脏数据。
func ParseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNonFinite, s)
	}
	return v, nil
}

// FormatFloat 格式化浮点数为字符串
// 参数 prec: 小数位数，-1 表示最短表示
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
