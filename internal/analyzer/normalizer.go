package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind 规范化值的类别
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueNumber
	ValueText
)

// Value 规范化后的单元格值
type Value struct {
	Kind ValueKind
	Num  float64
	Text string
}

// IsEmpty 是否为空值
func (v Value) IsEmpty() bool {
	return v.Kind == ValueEmpty
}

// String 原样文本表示
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueText:
		return v.Text
	default:
		return ""
	}
}

// Canonicalize 把原始单元格内容规范化为统一值：
//   - 数值保留 2 位小数；|v| < 1e-4 或 > 1e6 时转科学记数法文本
//   - 百分比字符串解析后除以 100，保留 4 位小数
//   - 纯数字字符串按数值路径递归处理
//   - 无法解析的字符串去除首尾空白后原样保留
//   - 空白内容归为空值，由调用方按"跳过并告警"处理
func Canonicalize(raw string) Value {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return Value{Kind: ValueEmpty}
	}

	if strings.Contains(raw, "%") {
		stripped := strings.Trim(raw, "%")
		num, err := strconv.ParseFloat(strings.TrimSpace(stripped), 64)
		if err != nil {
			return Value{Kind: ValueText, Text: stripped}
		}
		frac := num / 100
		if frac != 0 && math.Abs(frac) < 1e-4 {
			return Value{Kind: ValueText, Text: fmt.Sprintf("%.2e", frac)}
		}
		return Value{Kind: ValueNumber, Num: round(frac, 4)}
	}

	if num, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(num) {
			return Value{Kind: ValueEmpty}
		}
		return canonNumber(num)
	}

	return Value{Kind: ValueText, Text: raw}
}

// canonNumber 数值规范化：极端量级转科学记数法，其余保留 2 位小数
func canonNumber(v float64) Value {
	abs := math.Abs(v)
	if abs == 0 {
		return Value{Kind: ValueNumber, Num: 0}
	}
	if abs < 1e-4 || abs > 1e6 {
		return Value{Kind: ValueText, Text: fmt.Sprintf("%.2e", v)}
	}
	return Value{Kind: ValueNumber, Num: round(v, 2)}
}

// FormatNumber 按量级选择显示格式：
// 0~1 显示为百分比；大于 1000 加千分位；极端量级用科学记数法。
func FormatNumber(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs == 0:
		return "0"
	case abs < 1e-4 || abs > 1e6:
		return fmt.Sprintf("%.2e", v)
	case abs < 1:
		return fmt.Sprintf("%.2f%%", v*100)
	case abs > 1000:
		return groupThousands(v, 2)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// FormatForRule 按规则名关键词选择单位格式：
// 效率/风险类显示百分比，金额类加货币符号，天数类加"天"。
func FormatForRule(v float64, ruleName string) string {
	switch {
	case strings.Contains(ruleName, "效率") || strings.Contains(ruleName, "风险") ||
		containsFold(ruleName, "efficiency") || containsFold(ruleName, "risk"):
		return fmt.Sprintf("%.1f%%", v*100)
	case strings.Contains(ruleName, "金额") || containsFold(ruleName, "amount"):
		return "¥" + groupThousands(v, 2)
	case strings.Contains(ruleName, "天数") || containsFold(ruleName, "days"):
		return fmt.Sprintf("%.1f天", v)
	default:
		return groupThousands(v, -1)
	}
}

// Display 规范化值的展示文本
func Display(v Value, ruleName string) string {
	switch v.Kind {
	case ValueNumber:
		if ruleName != "" {
			return FormatForRule(v.Num, ruleName)
		}
		return FormatNumber(v.Num)
	case ValueText:
		return v.Text
	default:
		return ""
	}
}

// parseNumeric 提取策略用的宽松数值解析：去掉百分号与千分位分隔符后解析。
// "10%" -> 10，"1,234.5" -> 1234.5。
func parseNumeric(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	raw = strings.Trim(raw, "%")
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// groupThousands 千分位格式化。decimals 为 -1 时保留最短小数表示。
func groupThousands(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}
