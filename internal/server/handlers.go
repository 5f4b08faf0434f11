package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kpilens/internal/config"
	"kpilens/internal/model"
	"kpilens/internal/service"
	"kpilens/internal/store"
)

// Handlers RPA 接口处理器
type Handlers struct {
	svc     *service.Service
	history *store.Store
	cfg     *config.AppConfig
}

// NewHandlers 创建处理器
func NewHandlers(svc *service.Service, history *store.Store, cfg *config.AppConfig) *Handlers {
	return &Handlers{svc: svc, history: history, cfg: cfg}
}

// RegisterRoutes 注册路由
func (h *Handlers) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.POST("/analyze", h.Analyze)
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)
}

// analyzeRequest RPA 分析请求体
type analyzeRequest struct {
	DataFile   string `json:"data_file" binding:"required"`
	RuleFile   string `json:"rule_file"`
	RuleSheet  string `json:"rule_sheet"`
	OutputFile string `json:"output_file"`
	ReportFile string `json:"report_file"`
	Entity     string `json:"entity"`
	Week       int    `json:"week"`
	Ordered    bool   `json:"ordered"`
}

// analyzeResponse RPA 分析响应体
type analyzeResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Results []model.AnalysisResult `json:"results"`
	RunID   string                 `json:"run_id,omitempty"`
}

// Health 健康检查
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Analyze 执行一次分析。失败语义与 RPA 约定一致：
// HTTP 层始终 200，success 字段标记结果。
func (h *Handlers) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, analyzeResponse{
			Success: false,
			Message: "请求格式无效: " + err.Error(),
			Results: []model.AnalysisResult{},
		})
		return
	}

	entity := req.Entity
	if entity == "" {
		entity = h.cfg.Business.Entity
	}
	week := req.Week
	if week == 0 {
		week = h.cfg.Business.Week
	}
	ruleSheet := req.RuleSheet
	if ruleSheet == "" {
		ruleSheet = h.cfg.Rules.SheetName
	}

	out, err := h.svc.Analyze(service.Options{
		DataFile:   req.DataFile,
		RuleFile:   req.RuleFile,
		RuleSheet:  ruleSheet,
		OutputFile: req.OutputFile,
		ReportFile: req.ReportFile,
		Entity:     entity,
		Week:       week,
		Ordered:    req.Ordered,
	})
	if err != nil {
		resp := analyzeResponse{Success: false, Message: err.Error(), Results: []model.AnalysisResult{}}
		if out != nil {
			resp.Results = out.Results
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Success: true,
		Message: "分析完成",
		Results: out.Results,
		RunID:   out.RunID,
	})
}

// ListRuns 查询最近的分析运行
func (h *Handlers) ListRuns(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			limit = n
		}
	}

	runs, err := h.history.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun 查询单次运行及其完整结果
func (h *Handlers) GetRun(c *gin.Context) {
	run, results, err := h.history.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "results": results})
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}
