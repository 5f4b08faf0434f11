package model

// ResultKind 分析结果类型标签，与规则种类一一对应
type ResultKind string

const (
	KindInventoryEfficiency ResultKind = "库存效率"
	KindShortageRisk        ResultKind = "缺料风险"
	KindDeadStockRisk       ResultKind = "呆滞风险"
	KindDeadStockValue      ResultKind = "呆滞金额"
	KindTransitDays         ResultKind = "运输天数"
	KindSafetyTime          ResultKind = "安全时间"
	KindNoSupplier          ResultKind = "无供应商"
	KindMOQImpact           ResultKind = "MOQ影响"
	KindKPI                 ResultKind = "KPI"
	KindExtremum            ResultKind = "最值"
	KindCell                ResultKind = "单元格"
)

// RankedItem Top-N 提取出的一条记录：料号 + 数值 + 原始单元格内容
type RankedItem struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Raw   string  `json:"raw,omitempty"`
}

// AnalysisResult 单条规则的分析结果。
// 由提取策略创建、报告生成器消费，创建后不再修改。
// 载荷字段按 Kind 区分：Value/Display/Status 属于单值类结果，
// Items 属于 Top-N 类，MaxValues/MinValues 属于最值类，Values 属于存在性筛选。
type AnalysisResult struct {
	RuleID      int        `json:"id"`
	Success     bool       `json:"success"`
	Kind        ResultKind `json:"type,omitempty"`
	Description string     `json:"description"`

	Value   *float64 `json:"value,omitempty"`
	Display string   `json:"display,omitempty"`
	Status  string   `json:"status,omitempty"`

	Items     []RankedItem `json:"items,omitempty"`
	MaxValues []float64    `json:"max_values,omitempty"`
	MinValues []float64    `json:"min_values,omitempty"`
	Values    []string     `json:"values,omitempty"`

	Suggestion       string   `json:"suggestion,omitempty"`
	Comments         string   `json:"comments,omitempty"`
	OptimizationPlan string   `json:"optimization_plan,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`

	Error string `json:"error,omitempty"`
}

// Float 便捷构造 *float64
func Float(v float64) *float64 {
	return &v
}
