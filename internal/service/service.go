package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"kpilens/internal/analyzer"
	"kpilens/internal/model"
	"kpilens/internal/report"
	"kpilens/internal/rules"
	"kpilens/internal/store"
	"kpilens/internal/workbook"
)

// ErrNoDataFile 未指定数据文件
var ErrNoDataFile = errors.New("data file not specified")

// Options 一次分析运行的全部输入
type Options struct {
	DataFile   string
	RuleFile   string // 为空时规则表取自数据文件
	RuleSheet  string // 为空时取规则工作簿第一个 sheet
	OutputFile string // 可选，表格报告输出路径
	ReportFile string // 可选，文本报告输出路径
	Entity     string
	Week       int
	Ordered    bool // true 时按依赖拓扑顺序评估
}

// Outcome 分析运行的产出
type Outcome struct {
	Rules   []*model.Rule
	Results []model.AnalysisResult
	RunID   string // 历史存储未启用时为空
}

// Service 分析流水线：装载、评估、报告、存档
type Service struct {
	history *store.Store // 可为 nil
	logger  *log.Logger
}

// New 创建分析服务，history 传 nil 表示不落历史
func New(history *store.Store, logger *log.Logger) *Service {
	return &Service{history: history, logger: logger}
}

// Analyze 执行一次完整分析。
// 单条规则失败不会中断整批；装载阶段的失败直接返回错误。
func (s *Service) Analyze(opts Options) (*Outcome, error) {
	if opts.DataFile == "" {
		return nil, ErrNoDataFile
	}

	dataWB, err := workbook.Load(opts.DataFile)
	if err != nil {
		return nil, fmt.Errorf("加载数据文件失败: %w", err)
	}

	ruleWB := dataWB
	if opts.RuleFile != "" && opts.RuleFile != opts.DataFile {
		ruleWB, err = workbook.Load(opts.RuleFile)
		if err != nil {
			return nil, fmt.Errorf("加载规则表失败: %w", err)
		}
	}

	ruleList, err := rules.LoadRules(ruleWB, dataWB, opts.RuleSheet, s.logger)
	if err != nil {
		return nil, fmt.Errorf("解析规则表失败: %w", err)
	}

	a := analyzer.New(dataWB, s.logger)

	var results []model.AnalysisResult
	if opts.Ordered {
		results = s.analyzeOrdered(a, ruleList)
	} else {
		results = a.AnalyzeAll(ruleList)
	}

	out := &Outcome{Rules: ruleList, Results: results}

	if opts.OutputFile != "" {
		if err := report.WriteExcel(opts.OutputFile, ruleList, results); err != nil {
			return out, fmt.Errorf("生成报告失败: %w", err)
		}
		s.logger.Printf("报告已生成: %s", opts.OutputFile)
	}

	if opts.ReportFile != "" {
		text := report.Narrative(results, report.Meta{
			Entity:      opts.Entity,
			Week:        opts.Week,
			SourceFile:  opts.DataFile,
			GeneratedAt: time.Now(),
		})
		if err := report.SaveNarrative(text, opts.ReportFile); err != nil {
			return out, err
		}
		s.logger.Printf("报告已保存到: %s", opts.ReportFile)
	}

	if s.history != nil {
		id, err := s.history.SaveRun(opts.DataFile, opts.Entity, opts.Week, results)
		if err != nil {
			// 存档失败不影响本次结果
			s.logger.Printf("保存运行历史失败: %v", err)
		} else {
			out.RunID = id
		}
	}

	return out, nil
}

// analyzeOrdered 依赖顺序评估。注册失败的规则（重名、成环）不参与排序，
// 但仍以失败结果出现在结果集里——每条提交的规则必然得到一个结果。
func (s *Service) analyzeOrdered(a *analyzer.Analyzer, ruleList []*model.Rule) []model.AnalysisResult {
	mgr := rules.NewManager()
	var rejected []model.AnalysisResult
	for _, r := range ruleList {
		if err := mgr.Add(r); err != nil {
			s.logger.Printf("规则 %q 未纳入依赖排序: %v", r.DisplayName(), err)
			rejected = append(rejected, model.AnalysisResult{
				RuleID:      r.ID,
				Success:     false,
				Description: r.Description,
				Error:       err.Error(),
			})
		}
	}
	return append(a.AnalyzeOrdered(mgr), rejected...)
}
