// Package coerce 把 CSV/XLSX 原始单元格文本转换为安全的类型值。
// 所有函数都是全函数：任何歧义输入都落到缺省值，从不返回错误。
package coerce

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// nullTokens pandas 读入文本后遗留的空值标记
var nullTokens = map[string]struct{}{
	"nan":  {},
	"None": {},
	"<NA>": {},
}

// SafeFloat 安全转换浮点：空白/非数值/NaN/Inf 一律返回 def
func SafeFloat(raw string, def float64) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// TimeToSeconds 把时长归一化为非负整数秒。
// 支持三种形态：裸数值（四舍五入，远离零）、H:M:S、H:M。
// 时分秒任一超出 0-23 / 0-59 范围时整体判为无效，返回 0 而不是截断。
func TimeToSeconds(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		switch len(parts) {
		case 3:
			h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
			m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
			sec, errS := strconv.Atoi(strings.TrimSpace(parts[2]))
			if errH != nil || errM != nil || errS != nil {
				return 0
			}
			if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
				return 0
			}
			return int64(h)*3600 + int64(m)*60 + int64(sec)
		case 2:
			h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
			m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
			if errH != nil || errM != nil {
				return 0
			}
			if h < 0 || h > 23 || m < 0 || m > 59 {
				return 0
			}
			return int64(h)*3600 + int64(m)*60
		default:
			return 0
		}
	}
	f := SafeFloat(s, math.NaN())
	if math.IsNaN(f) {
		return 0
	}
	n := int64(math.Round(f))
	if n < 0 {
		return 0
	}
	return n
}

// SafeInt 安全转换可空整数。无法解析时返回 nil；
// 带小数部分的数值向下取整，第二个返回值标记发生过取整（调用方负责告警）。
func SafeInt(raw string) (*int64, bool) {
	f := SafeFloat(raw, math.NaN())
	if math.IsNaN(f) {
		return nil, false
	}
	floored := math.Floor(f)
	truncated := math.Abs(f-floored) > 1e-9
	n := int64(floored)
	return &n, truncated
}

// CleanText 自由文本清洗：trim 后把空值标记折叠为空串
func CleanText(raw string) string {
	s := strings.TrimSpace(raw)
	if _, ok := nullTokens[s]; ok {
		return ""
	}
	return s
}

// dateLayout 日在前，Go 的非补零布局同时接受补零与非补零输入
const (
	dateLayout    = "2-1-2006"
	canonicalDate = "02-01-2006"
)

// NormalizeDate 解析日在前的 DD-MM-YYYY 日期并重排为规范补零格式。
// 解析失败返回空串，该行仍会入库，只是不参与按日期过滤的报表。
func NormalizeDate(raw string) string {
	s := CleanText(raw)
	if s == "" {
		return ""
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return ""
	}
	return t.Format(canonicalDate)
}

// CleanTimeOfDay 清洗 HH:MM[:SS] 文本，去掉数值列误读产生的 ".0" 尾巴
func CleanTimeOfDay(raw string) string {
	s := CleanText(raw)
	return strings.TrimSuffix(s, ".0")
}
