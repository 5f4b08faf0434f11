package analyzer

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"kpilens/internal/model"
	"kpilens/internal/rules"
)

// ErrUnparseableValue 单元格内容无法按策略要求的类型解析
var ErrUnparseableValue = errors.New("unparseable cell value")

// 各规则种类的固定建议文案
var suggestions = map[model.ResultKind]string{
	model.KindShortageRisk:   "建议提前备料，跟进供应商交期",
	model.KindDeadStockRisk:  "建议关注库存周转，制定呆滞消耗计划",
	model.KindDeadStockValue: "建议制定呆滞物料清理计划，优先处理高金额料号",
	model.KindTransitDays:    "建议优化物流路线，评估更快的运输方式",
	model.KindSafetyTime:     "建议复核安全时间设置是否过于保守",
	model.KindNoSupplier:     "建议尽快完成供应商认证与定点",
	model.KindMOQImpact:      "建议与供应商协商降低最小起订量",
}

// topNSpec Top-N 提取的按种类固定参数：
// 条数、排序方向与默认取值列（规则文本里写了 "X列" 时以文本为准）。
type topNSpec struct {
	kind          model.ResultKind
	n             int
	descending    bool
	defaultColumn string
}

var (
	specShortageRisk   = topNSpec{kind: model.KindShortageRisk, n: 5, descending: false, defaultColumn: "AS"}
	specDeadStockRisk  = topNSpec{kind: model.KindDeadStockRisk, n: 5, descending: true, defaultColumn: "AS"}
	specDeadStockValue = topNSpec{kind: model.KindDeadStockValue, n: 3, descending: true, defaultColumn: "AS"}
	specTransitDays    = topNSpec{kind: model.KindTransitDays, n: 3, descending: true, defaultColumn: "D"}
	specSafetyTime     = topNSpec{kind: model.KindSafetyTime, n: 1, descending: true, defaultColumn: "D"}
	specMOQImpact      = topNSpec{kind: model.KindMOQImpact, n: 3, descending: true, defaultColumn: "AO"}
)

var columnInTextRe = regexp.MustCompile(`([A-Z]{1,3})列`)

// columnFromText 从规则文本提取取值列字母（如 "AO列数值最大的三个料号" -> "AO"）
func columnFromText(ruleText string) string {
	m := columnInTextRe.FindStringSubmatch(ruleText)
	if m == nil {
		return ""
	}
	return m[1]
}

var trailingIntRe = regexp.MustCompile(`(\d+)\s*$`)

// extremumN 从注释末尾解析 N，默认 3
func extremumN(comments string) int {
	m := trailingIntRe.FindStringSubmatch(comments)
	if m == nil {
		return 3
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 3
	}
	return n
}

func newResult(rule *model.Rule, kind model.ResultKind) *model.AnalysisResult {
	return &model.AnalysisResult{
		RuleID:           rule.ID,
		Kind:             kind,
		Description:      rule.Description,
		Comments:         rule.Comments,
		OptimizationPlan: rule.OptimizationPlan,
		Suggestion:       suggestions[kind],
	}
}

// evalDirectCell 单元格直读：规范化 + 展示格式化；空值按"空值"标记报告，不算失败。
// 有计算逻辑时对数值应用受限算式变换。
func (a *Analyzer) evalDirectCell(rule *model.Rule) (*model.AnalysisResult, error) {
	raw, err := a.wb.CellValue(rule.SheetName, rule.Location)
	if err != nil {
		return nil, err
	}

	res := newResult(rule, model.KindCell)
	v := Canonicalize(raw)

	if v.IsEmpty() {
		a.logger.Printf("规则 %q 的单元格值为空", rule.DisplayName())
		res.Status = "空值"
		res.Success = true
		return res, nil
	}

	if v.Kind == ValueNumber {
		num := v.Num
		if rule.Logic != "" {
			num, err = rules.ApplyLogic(rule.Logic, num)
			if err != nil {
				return nil, fmt.Errorf("计算逻辑执行失败: %w", err)
			}
			if cv := canonNumber(num); cv.Kind == ValueNumber {
				num = cv.Num
			}
		}
		res.Value = model.Float(num)
		res.Display = FormatForRule(num, rule.DisplayName())
	} else {
		res.Display = v.Text
	}

	res.Success = true
	return res, nil
}

// evalKPIThreshold 通用 KPI 阈值归档：从计算逻辑文本提取阈值，按降序比较。
// 单元格非数值时标记"数据无效"，仍算成功。
func (a *Analyzer) evalKPIThreshold(rule *model.Rule) (*model.AnalysisResult, error) {
	raw, err := a.wb.CellValue(rule.SheetName, rule.Location)
	if err != nil {
		return nil, err
	}

	res := newResult(rule, model.KindKPI)
	num, ok := parseNumeric(raw)
	if !ok {
		a.logger.Printf("规则 %q 的单元格值 %q 不是数值", rule.DisplayName(), raw)
		res.Status = "数据无效"
		res.Success = true
		return res, nil
	}

	th := ParseKPIThresholds(rule.Logic)
	res.Value = model.Float(num)
	res.Display = FormatForRule(num, rule.DisplayName())
	res.Status = th.Classify(num)
	res.Success = true
	return res, nil
}

// evalInventoryEfficiency 库存效率：百分比数值按 80/120 分档，
// 注释与优化计划按 <br> 分段后取对应档位。
func (a *Analyzer) evalInventoryEfficiency(rule *model.Rule) (*model.AnalysisResult, error) {
	raw, err := a.wb.CellValue(rule.SheetName, rule.Location)
	if err != nil {
		return nil, err
	}

	res := newResult(rule, model.KindInventoryEfficiency)
	num, ok := parseNumeric(raw)
	if !ok {
		a.logger.Printf("规则 %q 的单元格值 %q 不是数值", rule.DisplayName(), raw)
		res.Status = "数据无效"
		res.Success = true
		return res, nil
	}

	var idx int
	switch {
	case num < 80:
		idx = 0
		res.Status = "库存水平偏低"
	case num <= 120:
		idx = 1
		res.Status = "整体库存水平合理"
	default:
		idx = 2
		res.Status = "库存水平偏高"
	}

	res.Value = model.Float(num)
	res.Display = strconv.FormatFloat(num, 'f', -1, 64) + "%"
	res.Comments = pickSegment(rule.Comments, idx)
	res.OptimizationPlan = pickSegment(rule.OptimizationPlan, idx)
	if w := rangeWarning(model.KindInventoryEfficiency, num); w != "" {
		res.Warnings = append(res.Warnings, w)
	}
	res.Success = true
	return res, nil
}

// evalTopN Top-N 提取：按取值列数值排序后取前 N 条，逐条配上料号列的键。
// 无法解析的行直接丢弃；值相同的行保持原始行序。
func (a *Analyzer) evalTopN(rule *model.Rule, spec topNSpec) (*model.AnalysisResult, error) {
	column := columnFromText(rule.RuleText)
	if column == "" {
		column = spec.defaultColumn
	}
	if rule.KeyColumn == "" {
		return nil, fmt.Errorf("%w: Result列格式无效", ErrUnparseableValue)
	}

	values, err := a.wb.Column(rule.SheetName, column)
	if err != nil {
		return nil, err
	}
	keys, err := a.wb.Column(rule.SheetName, rule.KeyColumn)
	if err != nil {
		return nil, err
	}

	type entry struct {
		row   int
		value float64
		raw   string
	}
	entries := make([]entry, 0, len(values))
	for i := 1; i < len(values); i++ { // 跳过表头行
		num, ok := parseNumeric(values[i])
		if !ok {
			continue
		}
		entries = append(entries, entry{row: i, value: num, raw: values[i]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if spec.descending {
			return entries[i].value > entries[j].value
		}
		return entries[i].value < entries[j].value
	})

	n := spec.n
	if n > len(entries) {
		n = len(entries)
	}

	res := newResult(rule, spec.kind)
	for _, e := range entries[:n] {
		key := ""
		if e.row < len(keys) {
			key = keys[e.row]
		}
		if key == "" {
			continue
		}
		res.Items = append(res.Items, model.RankedItem{Key: key, Value: e.value, Raw: e.raw})
		if w := rangeWarning(spec.kind, e.value); w != "" {
			res.Warnings = append(res.Warnings, w)
		}
	}

	res.Success = true
	return res, nil
}

// evalExtremum 最值规则：整列扫描，同时给出最大 N 个与最小 N 个。
// N 从注释末尾的整数解析，默认 3；两个列表独立，N 不小于列基数时可能重叠。
func (a *Analyzer) evalExtremum(rule *model.Rule) (*model.AnalysisResult, error) {
	column := columnFromText(rule.RuleText)
	if column == "" {
		c, _, err := splitAddress(rule.Location)
		if err != nil {
			return nil, err
		}
		column = c
	}

	values, err := a.wb.Column(rule.SheetName, column)
	if err != nil {
		return nil, err
	}

	nums := make([]float64, 0, len(values))
	for i := 1; i < len(values); i++ {
		if num, ok := parseNumeric(values[i]); ok {
			nums = append(nums, num)
		}
	}

	res := newResult(rule, model.KindExtremum)
	if len(nums) == 0 {
		res.Status = "空值"
		res.Success = true
		return res, nil
	}

	n := extremumN(rule.Comments)
	if n > len(nums) {
		n = len(nums)
	}

	desc := append([]float64(nil), nums...)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i] > desc[j] })
	asc := append([]float64(nil), nums...)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i] < asc[j] })

	res.MaxValues = append(res.MaxValues, desc[:n]...)
	res.MinValues = append(res.MinValues, asc[:n]...)
	res.Success = true
	return res, nil
}

// evalPresence 存在性筛选：收集整列非空值，不做数值解释。
// 用于"没有供应商的物料"——列上出现即代表一条待解决项。
func (a *Analyzer) evalPresence(rule *model.Rule) (*model.AnalysisResult, error) {
	column := columnFromText(rule.RuleText)
	if column == "" {
		c, _, err := splitAddress(rule.Location)
		if err != nil {
			return nil, err
		}
		column = c
	}

	values, err := a.wb.Column(rule.SheetName, column)
	if err != nil {
		return nil, err
	}

	res := newResult(rule, model.KindNoSupplier)
	for i := 1; i < len(values); i++ {
		if values[i] != "" {
			res.Values = append(res.Values, values[i])
		}
	}
	res.Success = true
	return res, nil
}

var addressSplitRe = regexp.MustCompile(`^([A-Z]{1,3})([1-9][0-9]*)$`)

// splitAddress 拆出位置字符串里的列字母部分
func splitAddress(address string) (column, row string, err error) {
	m := addressSplitRe.FindStringSubmatch(address)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrUnparseableValue, address)
	}
	return m[1], m[2], nil
}

// pickSegment 取 <br> 分段文本的第 idx 段，越界返回空串
func pickSegment(text string, idx int) string {
	if text == "" {
		return ""
	}
	segs := splitSegments(text)
	if idx >= len(segs) {
		return ""
	}
	return segs[idx]
}

var brTagRe = regexp.MustCompile(`(?i)<br\s*/?>`)

func splitSegments(text string) []string {
	parts := brTagRe.Split(text, -1)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
