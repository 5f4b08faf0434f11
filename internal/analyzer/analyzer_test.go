package analyzer

import (
	"io"
	"log"
	"math"
	"strings"
	"testing"

	"kpilens/internal/model"
	"kpilens/internal/workbook"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// blankGrid 构造 rows x cols 的空网格，表头占第一行
func blankGrid(rows, cols int) [][]string {
	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
	}
	for c := 0; c < cols; c++ {
		grid[0][c] = "列" + string(rune('A'+c%26))
	}
	return grid
}

func newAnalyzer(grids map[string][][]string) *Analyzer {
	order := make([]string, 0, len(grids))
	for name := range grids {
		order = append(order, name)
	}
	wb := workbook.FromGrids("data.xlsx", order, grids)
	return New(wb, discardLogger())
}

func TestEvaluate_InventoryEfficiency(t *testing.T) {
	t.Parallel()

	grid := blankGrid(12, 8)
	grid[9][6] = "95" // G10

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "G10",
		Description: "Inventory efficiency",
		Comments:    "库存偏低<br>库存合理<br>库存偏高",
	})

	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if res.Kind != model.KindInventoryEfficiency {
		t.Fatalf("Kind = %q", res.Kind)
	}
	if res.Value == nil || *res.Value != 95 {
		t.Fatalf("Value = %v, want 95", res.Value)
	}
	if res.Status != "整体库存水平合理" {
		t.Fatalf("Status = %q", res.Status)
	}
	if res.Comments != "库存合理" {
		t.Fatalf("Comments = %q", res.Comments)
	}
	if res.Display != "95%" {
		t.Fatalf("Display = %q", res.Display)
	}
}

func TestEvaluate_ShortageRisk_AscendingTop5(t *testing.T) {
	t.Parallel()

	// E 列（idx 4）放料号，AS 列（idx 44）放占比
	grid := blankGrid(7, 46)
	keys := []string{"P1", "P2", "P3", "P4", "P5", "P6"}
	ratios := []string{"10%", "5%", "50%", "2%", "30%", "1%"}
	for i := 0; i < 6; i++ {
		grid[i+1][4] = keys[i]
		grid[i+1][44] = ratios[i]
	}

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 1, SheetName: "Results", Location: "AS2",
		Description: "缺料风险最高的物料",
		RuleText:    "最低的5个料号",
		ResultSpec:  "PN($E*)",
		KeyColumn:   "E",
	})

	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if res.Kind != model.KindShortageRisk {
		t.Fatalf("Kind = %q", res.Kind)
	}

	wantKeys := []string{"P6", "P4", "P2", "P1", "P5"}
	wantRaws := []string{"1%", "2%", "5%", "10%", "30%"}
	if len(res.Items) != 5 {
		t.Fatalf("got %d items, want 5", len(res.Items))
	}
	for i := range wantKeys {
		if res.Items[i].Key != wantKeys[i] || res.Items[i].Raw != wantRaws[i] {
			t.Fatalf("item %d = %+v, want (%s,%s)", i, res.Items[i], wantKeys[i], wantRaws[i])
		}
	}
}

func TestEvaluate_TopN_NLargerThanColumn(t *testing.T) {
	t.Parallel()

	grid := blankGrid(4, 46)
	for i, v := range []string{"3", "1", "2"} {
		grid[i+1][4] = "P" + v
		grid[i+1][44] = v
	}

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "AS2",
		Description: "呆滞风险排名", KeyColumn: "E",
	})

	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	// N=5 大于列基数：返回全列，降序
	if len(res.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(res.Items))
	}
	if res.Items[0].Key != "P3" || res.Items[2].Key != "P1" {
		t.Fatalf("unexpected order: %+v", res.Items)
	}
}

func TestEvaluate_DeadStockValueBeforeDeadStock(t *testing.T) {
	t.Parallel()

	grid := blankGrid(5, 46)
	for i, v := range []string{"100", "300", "200", "50"} {
		grid[i+1][4] = "P" + v
		grid[i+1][44] = v
	}

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "AS2",
		Description: "呆滞金额最大的料号", KeyColumn: "E",
	})

	// "呆滞金额" 命中金额策略（N=3），而不是"呆滞"风险策略（N=5）
	if res.Kind != model.KindDeadStockValue {
		t.Fatalf("Kind = %q, want %q", res.Kind, model.KindDeadStockValue)
	}
	if len(res.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(res.Items))
	}
	if res.Items[0].Key != "P300" {
		t.Fatalf("unexpected top item: %+v", res.Items[0])
	}
}

func TestEvaluate_StableTieBreak(t *testing.T) {
	t.Parallel()

	grid := blankGrid(5, 46)
	for i, kv := range [][2]string{{"P1", "5"}, {"P2", "5"}, {"P3", "5"}, {"P4", "1"}} {
		grid[i+1][4] = kv[0]
		grid[i+1][44] = kv[1]
	}

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "AS2",
		Description: "运输天数不一致", RuleText: "AS列天数最多的三条", KeyColumn: "E",
	})

	if res.Kind != model.KindTransitDays {
		t.Fatalf("Kind = %q", res.Kind)
	}
	// 同值按原始行序
	want := []string{"P1", "P2", "P3"}
	for i, k := range want {
		if res.Items[i].Key != k {
			t.Fatalf("tie order broken: %+v", res.Items)
		}
	}
}

func TestEvaluate_KPIThresholdFallback(t *testing.T) {
	t.Parallel()

	grid := blankGrid(3, 3)
	grid[1][1] = "90" // B2

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "B2",
		Description: "准时交付", RuleType: model.RuleTypeKPI,
		Logic: "good: >90, warning: >70",
	})

	if res.Kind != model.KindKPI {
		t.Fatalf("Kind = %q", res.Kind)
	}
	// 边界在良好一侧闭合：恰好等于 good 阈值判良好
	if res.Status != "良好" {
		t.Fatalf("Status = %q, want 良好", res.Status)
	}
}

func TestEvaluate_KPIInvalidCell(t *testing.T) {
	t.Parallel()

	grid := blankGrid(3, 3)
	grid[1][1] = "不是数字"

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "B2",
		Description: "准时交付", RuleType: model.RuleTypeKPI,
	})

	if !res.Success || res.Status != "数据无效" {
		t.Fatalf("want success with 数据无效, got %+v", res)
	}
}

func TestEvaluate_Extremum(t *testing.T) {
	t.Parallel()

	grid := blankGrid(7, 3)
	for i, v := range []string{"5", "", "9", "1", "7", "3"} {
		grid[i+1][1] = v // B 列，含空值
	}

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "B2",
		Description: "库存数量分布", RuleType: model.RuleTypeExtremum,
		Comments: "取 2",
	})

	if res.Kind != model.KindExtremum {
		t.Fatalf("Kind = %q", res.Kind)
	}
	if len(res.MaxValues) != 2 || res.MaxValues[0] != 9 || res.MaxValues[1] != 7 {
		t.Fatalf("MaxValues = %v", res.MaxValues)
	}
	if len(res.MinValues) != 2 || res.MinValues[0] != 1 || res.MinValues[1] != 3 {
		t.Fatalf("MinValues = %v", res.MinValues)
	}
}

func TestEvaluate_DirectCellWithLogic(t *testing.T) {
	t.Parallel()

	grid := blankGrid(3, 3)
	grid[1][1] = "0.95"

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "B2",
		Description: "库存水位", RuleType: model.RuleTypeCell,
		Logic: "value * 100",
	})

	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if res.Value == nil || math.Abs(*res.Value-95) > 1e-9 {
		t.Fatalf("Value = %v, want 95", res.Value)
	}
}

func TestEvaluate_DirectCellEmpty(t *testing.T) {
	t.Parallel()

	grid := blankGrid(3, 3)

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "B2",
		Description: "备注栏", RuleType: model.RuleTypeCell,
	})

	if !res.Success || res.Status != "空值" {
		t.Fatalf("empty cell should report 空值, got %+v", res)
	}
}

func TestEvaluate_Presence(t *testing.T) {
	t.Parallel()

	grid := blankGrid(5, 3)
	grid[1][1] = "P1"
	grid[3][1] = "P9"

	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "B2",
		Description: "没有供应商的物料",
	})

	if res.Kind != model.KindNoSupplier {
		t.Fatalf("Kind = %q", res.Kind)
	}
	if len(res.Values) != 2 || res.Values[0] != "P1" || res.Values[1] != "P9" {
		t.Fatalf("Values = %v", res.Values)
	}
}

func TestEvaluate_UnsupportedRuleType(t *testing.T) {
	t.Parallel()

	grid := blankGrid(3, 3)
	a := newAnalyzer(map[string][][]string{"Results": grid})
	res := a.Evaluate(&model.Rule{
		ID: 0, SheetName: "Results", Location: "A1",
		Description: "无法识别的规则", RuleType: "神秘类型",
	})

	if res.Success {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.Error, "神秘类型") {
		t.Fatalf("error should carry the unknown type: %q", res.Error)
	}
}

func TestAnalyzeAll_FailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	grid := blankGrid(3, 3)
	grid[1][1] = "42"

	a := newAnalyzer(map[string][][]string{"Results": grid})
	results := a.AnalyzeAll([]*model.Rule{
		{ID: 0, SheetName: "Results", Location: "B2", Description: "好规则", RuleType: model.RuleTypeCell},
		{ID: 1, SheetName: "没有的表", Location: "A1", Description: "坏规则", RuleType: model.RuleTypeCell},
		{ID: 2, SheetName: "Results", Location: "B2", Description: "又一条好规则", RuleType: model.RuleTypeCell},
	})

	if len(results) != 3 {
		t.Fatalf("every rule must yield a result, got %d", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Fatalf("unexpected success flags: %v %v %v", results[0].Success, results[1].Success, results[2].Success)
	}
	if results[1].Error == "" {
		t.Fatalf("failed result must carry error message")
	}
}
