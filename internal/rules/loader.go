package rules

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"kpilens/internal/model"
	"kpilens/internal/workbook"
)

// ErrNoRules 规则表过滤后没有任何有效规则
var ErrNoRules = errors.New("no valid rules loaded")

// 规则表列名双语映射。中英文表头各取一套，逐列匹配。
var (
	colSheet       = []string{"Sheet", "Sheet名称"}
	colLocation    = []string{"Location", "单元格位置", "位置"}
	colName        = []string{"Name", "规则名称"}
	colDescription = []string{"Description", "描述"}
	colRuleText    = []string{"Rule", "规则"}
	colRuleType    = []string{"RuleType", "Rule Type", "规则类型"}
	colLogic       = []string{"Logic", "计算逻辑"}
	colComments    = []string{"Comments", "注释"}
	colPlan        = []string{"Optimization plan", "优化计划"}
	colResult      = []string{"Result", "结果"}
)

// LoadRules 从规则工作簿的指定表加载规则。
// sheetName 为空时取第一张表。dataWB 用于校验规则引用的数据表是否存在；
// 传 nil 时以规则工作簿自身校验（规则与数据同簿的场景）。
//
// 行级问题（描述为空、Sheet 不存在、位置格式无效）记警告后跳过，不算加载失败；
// 缺少必要列或过滤后规则数为零才视为失败。
func LoadRules(ruleWB, dataWB *workbook.Workbook, sheetName string, logger *log.Logger) ([]*model.Rule, error) {
	if dataWB == nil {
		dataWB = ruleWB
	}

	var sheet *workbook.Sheet
	var err error
	if strings.TrimSpace(sheetName) == "" {
		sheet = ruleWB.FirstSheet()
		if sheet == nil {
			return nil, fmt.Errorf("rule workbook has no sheets")
		}
	} else {
		sheet, err = ruleWB.Sheet(sheetName)
		if err != nil {
			return nil, err
		}
	}

	header := sheet.Header()
	if len(header) == 0 {
		return nil, fmt.Errorf("rule sheet %q is empty", sheet.Name)
	}

	idxSheet := findColumn(header, colSheet)
	idxLocation := findColumn(header, colLocation)
	idxName := findColumn(header, colName)
	idxDescription := findColumn(header, colDescription)
	idxRuleText := findColumn(header, colRuleText)
	idxRuleType := findColumn(header, colRuleType)
	idxLogic := findColumn(header, colLogic)
	idxComments := findColumn(header, colComments)
	idxPlan := findColumn(header, colPlan)
	idxResult := findColumn(header, colResult)

	// 描述列允许由"规则名称"列兼任（中文表头只有规则名称的变体）
	if idxDescription < 0 {
		idxDescription = idxName
	}

	var missing []string
	if idxSheet < 0 {
		missing = append(missing, "Sheet")
	}
	if idxLocation < 0 {
		missing = append(missing, "Location")
	}
	if idxDescription < 0 {
		missing = append(missing, "Description")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("rule sheet %q missing required columns: %s", sheet.Name, strings.Join(missing, ", "))
	}

	get := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	out := make([]*model.Rule, 0, sheet.RowCount())
	for i, row := range sheet.Rows[1:] {
		description := get(row, idxDescription)
		if description == "" {
			logger.Printf("规则表第 %d 行描述为空，已跳过", i+2)
			continue
		}

		sheetRef := get(row, idxSheet)
		if !dataWB.HasSheet(sheetRef) {
			logger.Printf("规则 %q 指定的 Sheet %q 不存在，已跳过", description, sheetRef)
			continue
		}

		location := get(row, idxLocation)
		if !workbook.IsValidAddress(location) {
			logger.Printf("规则 %q 的单元格位置 %q 格式无效，已跳过", description, location)
			continue
		}

		// ID 取数据行序号而非已加载条数：跳过坏行不压缩后续规则的引用键
		rule := &model.Rule{
			ID:               i,
			Name:             get(row, idxName),
			SheetName:        sheetRef,
			Location:         location,
			Description:      description,
			RuleText:         get(row, idxRuleText),
			RuleType:         model.RuleType(get(row, idxRuleType)),
			Logic:            get(row, idxLogic),
			Comments:         get(row, idxComments),
			OptimizationPlan: get(row, idxPlan),
			ResultSpec:       get(row, idxResult),
		}
		rule.KeyColumn = ParseResultColumn(rule.ResultSpec)

		out = append(out, rule)
	}

	if len(out) == 0 {
		return nil, ErrNoRules
	}

	logger.Printf("成功加载 %d 条规则", len(out))
	return out, nil
}

// ParseResultColumn 从形如 "PN($E*)" 的 Result 字符串解析料号列字母。
// 格式不符时返回空串。
func ParseResultColumn(result string) string {
	start := strings.Index(result, "$")
	end := strings.Index(result, "*")
	if start < 0 || end < 0 || start+1 >= end {
		return ""
	}
	letters := result[start+1 : end]
	for _, ch := range letters {
		if ch < 'A' || ch > 'Z' {
			return ""
		}
	}
	return letters
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, name := range names {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}
