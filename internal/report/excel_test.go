package report

import (
	"testing"

	"kpilens/internal/model"
)

func TestFormatResult(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   model.AnalysisResult
		want string
	}{
		{"failure", model.AnalysisResult{Success: false, Error: "boom"}, "处理失败: boom"},
		{"ranked items", model.AnalysisResult{Success: true, Items: []model.RankedItem{
			{Key: "P6", Value: 1, Raw: "1%"}, {Key: "P4", Value: 2, Raw: "2%"},
		}}, "P6(1%), P4(2%)"},
		{"extremum", model.AnalysisResult{Success: true,
			MaxValues: []float64{9, 7}, MinValues: []float64{1, 3}}, "最大: [9, 7], 最小: [1, 3]"},
		{"presence values", model.AnalysisResult{Success: true, Values: []string{"P1", "P9"}}, "P1, P9"},
		{"display", model.AnalysisResult{Success: true, Display: "95%", Status: "整体库存水平合理"}, "95%"},
		{"status only", model.AnalysisResult{Success: true, Status: "空值"}, "空值"},
		{"blank", model.AnalysisResult{Success: true}, ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatResult(&tc.in); got != tc.want {
				t.Fatalf("FormatResult = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildExcel(t *testing.T) {
	t.Parallel()

	ruleList := []*model.Rule{
		{ID: 0, SheetName: "Results", Location: "G10", RuleType: model.RuleTypeCell, Description: "库存效率"},
		{ID: 1, SheetName: "Results", Location: "AS2", Description: "缺料风险"},
	}
	results := []model.AnalysisResult{
		{RuleID: 0, Success: true, Kind: model.KindInventoryEfficiency,
			Description: "库存效率", Display: "95%", Status: "整体库存水平合理", Comments: "库存合理"},
		{RuleID: 1, Success: false, Description: "缺料风险", Error: "column missing"},
	}

	f, err := BuildExcel(ruleList, results)
	if err != nil {
		t.Fatalf("BuildExcel: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != ReportSheetName {
		t.Fatalf("sheets = %v", got)
	}
	idx, err := f.GetSheetIndex(ReportSheetName)
	if err != nil {
		t.Fatalf("GetSheetIndex: %v", err)
	}
	if got := f.GetActiveSheetIndex(); got != idx {
		t.Fatalf("active sheet = %d, want %d", got, idx)
	}

	check := func(cell, want string) {
		t.Helper()
		got, err := f.GetCellValue(ReportSheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Fatalf("%s = %q, want %q", cell, got, want)
		}
	}

	check("A1", "规则ID")
	check("H1", "注释")
	check("B2", "库存效率")
	check("C2", "Results")
	check("D2", "G10")
	check("F2", "95%")
	check("G2", "整体库存水平合理")
	check("H2", "库存合理")
	check("F3", "处理失败: column missing")
	check("G3", "失败")
}
