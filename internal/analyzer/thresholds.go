package analyzer

import (
	"fmt"
	"regexp"
	"strconv"

	"kpilens/internal/model"
)

// KPIThresholds 三档阈值。good/warning 边界在高档一侧闭合：
// 数值恰好等于 good 阈值判为"良好"。
type KPIThresholds struct {
	Good    float64
	Warning float64
	Bad     float64
}

// DefaultKPIThresholds 阈值说明缺失或格式不符时的兜底值
var DefaultKPIThresholds = KPIThresholds{Good: 90, Warning: 70, Bad: 0}

var (
	kpiGoodRe    = regexp.MustCompile(`(?i)(?:good|良好)\s*[:：]?\s*>?=?\s*(-?\d+(?:\.\d+)?)`)
	kpiWarningRe = regexp.MustCompile(`(?i)(?:warning|警告)\s*[:：]?\s*>?=?\s*(-?\d+(?:\.\d+)?)`)
	kpiBadRe     = regexp.MustCompile(`(?i)(?:bad|不达标)\s*[:：]?\s*>?=?\s*(-?\d+(?:\.\d+)?)`)
)

// ParseKPIThresholds 从自由文本（如 "good: >90, warning: >70"）提取阈值。
// good 与 warning 任一缺失即视为格式不符，整体回退默认值。
func ParseKPIThresholds(spec string) KPIThresholds {
	goodM := kpiGoodRe.FindStringSubmatch(spec)
	warnM := kpiWarningRe.FindStringSubmatch(spec)
	if goodM == nil || warnM == nil {
		return DefaultKPIThresholds
	}

	good, err1 := strconv.ParseFloat(goodM[1], 64)
	warn, err2 := strconv.ParseFloat(warnM[1], 64)
	if err1 != nil || err2 != nil {
		return DefaultKPIThresholds
	}

	th := KPIThresholds{Good: good, Warning: warn, Bad: 0}
	if badM := kpiBadRe.FindStringSubmatch(spec); badM != nil {
		if bad, err := strconv.ParseFloat(badM[1], 64); err == nil {
			th.Bad = bad
		}
	}
	return th
}

// Classify 按降序阈值比较归档
func (t KPIThresholds) Classify(value float64) string {
	switch {
	case value >= t.Good:
		return "良好"
	case value >= t.Warning:
		return "警告"
	default:
		return "不达标"
	}
}

// statusThreshold 报告摘要用的状态阈值。
// 库存效率是"越高越好"（good/warning 下界），其余指标是"越高越差"（high/medium 上界）。
type statusThreshold struct {
	higherIsBetter bool
	upper          float64 // good 或 high
	lower          float64 // warning 或 medium
}

var reportThresholds = map[model.ResultKind]statusThreshold{
	model.KindInventoryEfficiency: {higherIsBetter: true, upper: 90, lower: 70},
	model.KindShortageRisk:        {upper: 80, lower: 50},
	model.KindDeadStockRisk:       {upper: 70, lower: 40},
	model.KindDeadStockValue:      {upper: 500000, lower: 100000},
	model.KindTransitDays:         {upper: 30, lower: 15},
	model.KindSafetyTime:          {upper: 60, lower: 30},
	model.KindMOQImpact:           {upper: 500000, lower: 100000},
}

// 报告摘要状态
const (
	StatusGood    = "good"
	StatusWarning = "warning"
	StatusBad     = "bad"
)

// StatusOf 重新推导单条结果的三档状态，供报告摘要统计使用。
// 没有数值或没有对应阈值的结果一律归为 warning。
func StatusOf(r *model.AnalysisResult) string {
	v, ok := primaryValue(r)
	if !ok {
		return StatusWarning
	}
	th, ok := reportThresholds[r.Kind]
	if !ok {
		return StatusWarning
	}

	if th.higherIsBetter {
		switch {
		case v >= th.upper:
			return StatusGood
		case v >= th.lower:
			return StatusWarning
		default:
			return StatusBad
		}
	}
	switch {
	case v >= th.upper:
		return StatusBad
	case v >= th.lower:
		return StatusWarning
	default:
		return StatusGood
	}
}

// primaryValue 取结果的代表数值：单值结果用 Value，Top-N 结果用首条
func primaryValue(r *model.AnalysisResult) (float64, bool) {
	if r.Value != nil {
		return *r.Value, true
	}
	if len(r.Items) > 0 {
		return r.Items[0].Value, true
	}
	if len(r.MaxValues) > 0 {
		return r.MaxValues[0], true
	}
	return 0, false
}

// rangeLimit 各指标的合理取值范围（越界只告警，不判失败）
type rangeLimit struct {
	min, max float64
}

var rangeLimits = map[model.ResultKind]rangeLimit{
	model.KindInventoryEfficiency: {0, 200},
	model.KindShortageRisk:        {0, 100},
	model.KindDeadStockRisk:       {0, 100},
	model.KindTransitDays:         {0, 60},
	model.KindSafetyTime:          {0, 90},
	model.KindMOQImpact:           {0, 1000000},
}

// rangeWarning 数值越出合理范围时返回告警信息，范围内返回空串
func rangeWarning(kind model.ResultKind, value float64) string {
	lim, ok := rangeLimits[kind]
	if !ok {
		return ""
	}
	if value < lim.min || value > lim.max {
		return fmt.Sprintf("%s的值%v超出合理范围[%v, %v]", kind, value, lim.min, lim.max)
	}
	return ""
}
