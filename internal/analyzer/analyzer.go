package analyzer

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"kpilens/internal/model"
	"kpilens/internal/rules"
	"kpilens/internal/workbook"
)

// ErrUnsupportedRuleType 关键词与规则类型兜底均未命中
var ErrUnsupportedRuleType = errors.New("unsupported rule type")

// Analyzer 规则分派器：对一个已加载工作簿逐条评估规则。
// 一次分析运行一个实例，日志与取值缓存都限定在本次运行内。
type Analyzer struct {
	wb     *workbook.Workbook
	logger *log.Logger
}

// New 创建分析器
func New(wb *workbook.Workbook, logger *log.Logger) *Analyzer {
	return &Analyzer{wb: wb, logger: logger}
}

type strategyFunc func(a *Analyzer, rule *model.Rule) (*model.AnalysisResult, error)

// dispatchEntry 关键词到策略的映射。顺序即分派顺序，首个命中生效，
// 因此"呆滞金额"必须排在"呆滞"之前。
type dispatchEntry struct {
	keywords []string
	fn       strategyFunc
}

var keywordDispatch = []dispatchEntry{
	{[]string{"库存效率", "inventory efficiency"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalInventoryEfficiency(r) }},
	{[]string{"缺料", "shortage"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalTopN(r, specShortageRisk) }},
	{[]string{"呆滞金额", "dead stock value"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalTopN(r, specDeadStockValue) }},
	{[]string{"呆滞", "dead stock"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalTopN(r, specDeadStockRisk) }},
	{[]string{"运输天数", "transit"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalTopN(r, specTransitDays) }},
	{[]string{"安全时间", "safety time"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalTopN(r, specSafetyTime) }},
	{[]string{"没有供应商", "no supplier"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalPresence(r) }},
	{[]string{"moq"},
		func(a *Analyzer, r *model.Rule) (*model.AnalysisResult, error) { return a.evalTopN(r, specMOQImpact) }},
}

// Evaluate 评估单条规则。策略内的任何错误或 panic 都被降级为失败结果，
// 单条规则失败不会中断整批评估——每条提交的规则必然得到一个结果。
func (a *Analyzer) Evaluate(rule *model.Rule) (res *model.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("规则 %q 评估时 panic: %v", rule.DisplayName(), r)
			res = failedResult(rule, fmt.Sprintf("panic: %v", r))
		}
	}()

	result, err := a.dispatch(rule)
	if err != nil {
		a.logger.Printf("规则 %q 评估失败: %v", rule.DisplayName(), err)
		return failedResult(rule, err.Error())
	}
	return result
}

// dispatch 分派顺序固定：先关键词匹配（大小写不敏感，中英文关键词集），
// 未命中再按规则类型枚举兜底，两者都未命中报 ErrUnsupportedRuleType。
func (a *Analyzer) dispatch(rule *model.Rule) (*model.AnalysisResult, error) {
	text := strings.ToLower(rule.Description + " " + rule.RuleText)

	for _, entry := range keywordDispatch {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.fn(a, rule)
			}
		}
	}

	switch rule.RuleType {
	case model.RuleTypeKPI:
		return a.evalKPIThreshold(rule)
	case model.RuleTypeExtremum:
		return a.evalExtremum(rule)
	case model.RuleTypeCell:
		return a.evalDirectCell(rule)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedRuleType, string(rule.RuleType))
}

// AnalyzeAll 按规则表行序逐条评估
func (a *Analyzer) AnalyzeAll(ruleList []*model.Rule) []model.AnalysisResult {
	out := make([]model.AnalysisResult, 0, len(ruleList))
	for _, rule := range ruleList {
		out = append(out, *a.Evaluate(rule))
	}
	return out
}

// AnalyzeOrdered 按依赖管理器的拓扑顺序评估。
// 与 AnalyzeAll 互斥使用：一次运行只采用一种顺序。
func (a *Analyzer) AnalyzeOrdered(mgr *rules.Manager) []model.AnalysisResult {
	return a.AnalyzeAll(mgr.OrderedRules())
}

func failedResult(rule *model.Rule, msg string) *model.AnalysisResult {
	return &model.AnalysisResult{
		RuleID:      rule.ID,
		Success:     false,
		Description: rule.Description,
		Error:       msg,
	}
}
