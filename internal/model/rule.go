package model

// RuleType 规则类型枚举（规则表"规则类型"列，关键词未命中时的兜底分派依据）
type RuleType string

const (
	RuleTypeNone     RuleType = ""
	RuleTypeKPI      RuleType = "KPI"
	RuleTypeExtremum RuleType = "最值"
	RuleTypeCell     RuleType = "单元格"
)

// Rule 规则表中的一行规则
type Rule struct {
	// ID 行序号（0 基，加载时分配，作为外部引用键）
	ID int `json:"id"`
	// Name 规则名称；为空时回退为 Description
	Name string `json:"name"`
	// SheetName 数据所在工作表
	SheetName string `json:"sheet_name"`
	// Location 单元格位置，如 "G10"、"AS2"
	Location string `json:"location"`
	// Description 规则描述，关键词分派的主要依据
	Description string `json:"description"`
	// RuleText "规则"列自由文本，如 "AO列数值最大的三个料号"
	RuleText string `json:"rule_text,omitempty"`
	// RuleType 规则类型兜底标签
	RuleType RuleType `json:"rule_type,omitempty"`
	// Logic 计算逻辑：阈值说明或以 value/x 为占位符的算式
	Logic string `json:"logic,omitempty"`
	// Comments 注释，库存效率规则用 <br> 分段
	Comments string `json:"comments,omitempty"`
	// OptimizationPlan 优化计划，同样可用 <br> 分段
	OptimizationPlan string `json:"optimization_plan,omitempty"`
	// ResultSpec Result 列原文，如 "PN($E*)"
	ResultSpec string `json:"result_spec,omitempty"`
	// KeyColumn 从 ResultSpec 解析出的料号列字母，如 "E"
	KeyColumn string `json:"key_column,omitempty"`
}

// DisplayName 用于日志与报告的规则名
func (r *Rule) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Description
}
