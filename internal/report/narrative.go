package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"kpilens/internal/analyzer"
	"kpilens/internal/model"
)

// Meta 报告头部信息
type Meta struct {
	Entity      string
	Week        int
	SourceFile  string
	GeneratedAt time.Time
}

const bannerWidth = 80

// Narrative 生成文本分析报告。
// 结果为空时输出固定的警告块，正文结构固定：
// 头部、概述、逐条详细分析、改进建议、尾部。
func Narrative(results []model.AnalysisResult, meta Meta) string {
	ts := meta.GeneratedAt.Format("2006-01-02 15:04:05")

	lines := []string{
		strings.Repeat("=", bannerWidth),
		center("采购数据分析报告", bannerWidth),
		strings.Repeat("=", bannerWidth),
		"",
		"报告生成时间: " + ts,
		"分析实体: " + meta.Entity,
		fmt.Sprintf("分析周数: 第%d周", meta.Week),
		"数据来源: " + meta.SourceFile,
		"",
		strings.Repeat("-", bannerWidth),
		"分析结果概述:",
		strings.Repeat("-", bannerWidth),
		"",
	}

	if len(results) == 0 {
		lines = append(lines,
			"警告: 未能提取到任何KPI数据",
			"建议:",
			"1. 检查数据源文件格式是否正确",
			"2. 验证规则配置是否有效",
			"3. 确认所需数据是否完整",
		)
		return strings.Join(lines, "\n")
	}

	lines = append(lines, summaryLines(results)...)
	lines = append(lines, "", strings.Repeat("-", bannerWidth), "详细分析:", strings.Repeat("-", bannerWidth), "")

	for i := range results {
		lines = append(lines, detailLines(&results[i])...)
		lines = append(lines, "", strings.Repeat("-", 30), "")
	}

	lines = append(lines, strings.Repeat("-", bannerWidth), "改进建议:", strings.Repeat("-", bannerWidth), "")
	lines = append(lines, recommendationLines(results)...)

	lines = append(lines,
		"",
		strings.Repeat("=", bannerWidth),
		"报告生成完成 - "+ts,
		strings.Repeat("=", bannerWidth),
	)
	return strings.Join(lines, "\n")
}

// SaveNarrative 将文本报告落盘，父目录不存在时先创建
func SaveNarrative(content, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建报告目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("保存报告失败: %w", err)
	}
	return nil
}

func summaryLines(results []model.AnalysisResult) []string {
	counts := map[string]int{}
	for i := range results {
		counts[analyzer.StatusOf(&results[i])]++
	}
	total := len(results)
	pct := func(n int) float64 { return float64(n) / float64(total) * 100 }

	out := []string{
		fmt.Sprintf("分析指标总数: %d", total),
		fmt.Sprintf("状态良好: %d (%.1f%%)", counts[analyzer.StatusGood], pct(counts[analyzer.StatusGood])),
		fmt.Sprintf("需要关注: %d (%.1f%%)", counts[analyzer.StatusWarning], pct(counts[analyzer.StatusWarning])),
		fmt.Sprintf("问题严重: %d (%.1f%%)", counts[analyzer.StatusBad], pct(counts[analyzer.StatusBad])),
		"",
	}

	if findings := keyFindings(results); len(findings) > 0 {
		out = append(out, "重要发现:")
		out = append(out, findings...)
	}
	return out
}

func keyFindings(results []model.AnalysisResult) []string {
	var findings []string

	if v, ok := kindValue(results, model.KindInventoryEfficiency); ok {
		if v < 60 {
			findings = append(findings, "⚠ 库存效率严重不足，需要立即改善")
		} else if v > 150 {
			findings = append(findings, "⚠ 库存积压严重，建议及时处理")
		}
	}

	var highRisks []string
	for i := range results {
		r := &results[i]
		if !strings.Contains(string(r.Kind), "风险") {
			continue
		}
		if v, ok := resultValue(r); ok && v > 80 {
			highRisks = append(highRisks, string(r.Kind))
		}
	}
	if len(highRisks) > 0 {
		findings = append(findings, "⚠ 以下指标风险较高: "+strings.Join(highRisks, ", "))
	}
	return findings
}

var statusText = map[string]string{
	analyzer.StatusGood:    "良好 ✓",
	analyzer.StatusWarning: "警告 ⚠",
	analyzer.StatusBad:     "严重 ✗",
}

func detailLines(r *model.AnalysisResult) []string {
	name := string(r.Kind)
	if name == "" {
		name = r.Description
	}

	lines := []string{
		"指标: " + name,
		"当前值: " + currentValue(r),
		"状态: " + statusText[analyzer.StatusOf(r)],
	}

	if v, ok := resultValue(r); ok {
		lines = append(lines, specificAnalysis(r.Kind, v)...)
	}
	for _, w := range r.Warnings {
		lines = append(lines, "警告: "+w)
	}
	return lines
}

func currentValue(r *model.AnalysisResult) string {
	switch {
	case !r.Success:
		return "处理失败: " + r.Error
	case r.Display != "":
		return r.Display
	case len(r.Items) > 0:
		parts := make([]string, 0, len(r.Items))
		for _, it := range r.Items {
			parts = append(parts, fmt.Sprintf("%s(%s)", it.Key, it.Raw))
		}
		return strings.Join(parts, ", ")
	case len(r.MaxValues) > 0 || len(r.MinValues) > 0:
		return fmt.Sprintf("最大: %v, 最小: %v", r.MaxValues, r.MinValues)
	case len(r.Values) > 0:
		return strings.Join(r.Values, ", ")
	case r.Status != "":
		return r.Status
	}
	return ""
}

func specificAnalysis(kind model.ResultKind, v float64) []string {
	switch kind {
	case model.KindInventoryEfficiency:
		if v < 70 {
			return []string{"库存水平过低，可能影响供应链稳定性"}
		}
		if v > 120 {
			return []string{"库存水平过高，可能导致资金积压"}
		}
	case model.KindShortageRisk:
		if v > 80 {
			return []string{"缺料风险高，需要立即关注"}
		}
		if v > 50 {
			return []string{"存在潜在缺料风险，建议提前准备"}
		}
	case model.KindDeadStockRisk:
		if v > 70 {
			return []string{"呆滞风险高，需要制定清理计划"}
		}
		if v > 40 {
			return []string{"呆滞风险上升，建议关注库存周转"}
		}
	case model.KindTransitDays:
		if v > 30 {
			return []string{"运输时间过长，影响供应链效率"}
		}
		if v > 15 {
			return []string{"运输时间偏长，建议优化物流方案"}
		}
	}
	return nil
}

func recommendationLines(results []model.AnalysisResult) []string {
	var out []string

	if v, ok := kindValue(results, model.KindInventoryEfficiency); ok {
		if v < 70 {
			out = append(out,
				"1. 库存优化建议:",
				"   - 检查安全库存水平设置",
				"   - 优化补货策略和频率",
				"   - 加强与供应商的沟通",
			)
		} else if v > 120 {
			out = append(out,
				"1. 库存优化建议:",
				"   - 制定库存清理计划",
				"   - 调整采购订单量",
				"   - 考虑供应商寄售模式",
			)
		}
	}

	highRisk := false
	for i := range results {
		r := &results[i]
		if !strings.Contains(string(r.Kind), "风险") {
			continue
		}
		if v, ok := resultValue(r); ok && v > 70 {
			highRisk = true
			break
		}
	}
	if highRisk {
		out = append(out,
			"2. 风险管理建议:",
			"   - 建立风险预警机制",
			"   - 制定应急响应方案",
			"   - 定期评估供应商表现",
		)
	}

	if v, ok := kindValue(results, model.KindTransitDays); ok && v > 20 {
		out = append(out,
			"3. 运营改进建议:",
			"   - 优化物流路线",
			"   - 考虑增加物流供应商",
			"   - 建立运输时效监控",
		)
	}
	return out
}

// resultValue 取结果的代表数值，与摘要统计同一口径
func resultValue(r *model.AnalysisResult) (float64, bool) {
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

func kindValue(results []model.AnalysisResult, kind model.ResultKind) (float64, bool) {
	for i := range results {
		if results[i].Kind == kind {
			return resultValue(&results[i])
		}
	}
	return 0, false
}

// center 按显示字符数在 width 内居中（中文按一个字符计）
func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	right := width - n - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
