package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"kpilens/internal/model"
)

// ReportSheetName 表格报告的工作表名
const ReportSheetName = "分析报告"

var reportHeader = []string{"规则ID", "描述", "Sheet", "位置", "规则类型", "结果", "状态", "注释"}

// BuildExcel 生成表格报告工作簿。
// 每条结果一行，规则与结果按 ID 对齐；调用方负责写盘与关闭。
func BuildExcel(ruleList []*model.Rule, results []model.AnalysisResult) (*excelize.File, error) {
	byID := make(map[int]*model.Rule, len(ruleList))
	for _, r := range ruleList {
		byID[r.ID] = r
	}

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if _, err := f.NewSheet(ReportSheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("创建报告工作表失败: %w", err)
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("删除默认工作表失败: %w", err)
	}

	for i, h := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ReportSheetName, cell, h); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("写入表头失败: %w", err)
		}
	}

	for i := range results {
		res := &results[i]
		rule := byID[res.RuleID]

		row := []interface{}{res.RuleID, res.Description, "", "", "", FormatResult(res), statusCell(res), res.Comments}
		if rule != nil {
			row[2] = rule.SheetName
			row[3] = rule.Location
			row[4] = string(rule.RuleType)
		}

		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, i+2)
			if err := f.SetCellValue(ReportSheetName, cell, v); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("写入结果行失败: %w", err)
			}
		}
	}

	idx, err := f.GetSheetIndex(ReportSheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("定位报告工作表失败: %w", err)
	}
	f.SetActiveSheet(idx)
	return f, nil
}

// WriteExcel 生成表格报告并写盘
func WriteExcel(path string, ruleList []*model.Rule, results []model.AnalysisResult) error {
	f, err := BuildExcel(ruleList, results)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报告失败: %w", err)
	}
	return nil
}

// FormatResult 把一条结果压成单元格字符串
func FormatResult(r *model.AnalysisResult) string {
	if !r.Success {
		return "处理失败: " + r.Error
	}

	switch {
	case len(r.Items) > 0:
		parts := make([]string, 0, len(r.Items))
		for _, it := range r.Items {
			parts = append(parts, fmt.Sprintf("%s(%s)", it.Key, it.Raw))
		}
		return strings.Join(parts, ", ")
	case len(r.MaxValues) > 0 || len(r.MinValues) > 0:
		return fmt.Sprintf("最大: %s, 最小: %s", joinFloats(r.MaxValues), joinFloats(r.MinValues))
	case len(r.Values) > 0:
		return strings.Join(r.Values, ", ")
	case r.Display != "":
		return r.Display
	case r.Status != "":
		return r.Status
	}
	return ""
}

func statusCell(r *model.AnalysisResult) string {
	if !r.Success {
		return "失败"
	}
	return r.Status
}

func joinFloats(vs []float64) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
