package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"kpilens/internal/config"
	"kpilens/internal/server"
	"kpilens/internal/service"
	"kpilens/internal/store"
)

var (
	ruleFile   string
	ruleSheet  string
	outputFile string
	reportFile string
	entity     string
	week       int
	ordered    bool
	noHistory  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kpilens [data.xlsx]",
		Short: "规则表驱动的采购数据分析工具",
		Long: `kpilens 读取规则表与数据文件，逐条评估业务规则并输出结构化结果。
结果以 JSON 数组写到标准输出，供 RPA 流程直接消费。`,
		Args:          cobra.ExactArgs(1),
		RunE:          runAnalyze,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVarP(&ruleFile, "rules", "r", "", "规则表文件路径（缺省时规则表取自数据文件）")
	rootCmd.Flags().StringVar(&ruleSheet, "sheet", "", "规则表所在 sheet（缺省取第一张表）")
	rootCmd.Flags().StringVarP(&outputFile, "out", "o", "", "表格报告输出路径 (.xlsx)")
	rootCmd.Flags().StringVar(&reportFile, "report", "", "文本报告输出路径")
	rootCmd.Flags().StringVar(&entity, "entity", "", "报告中的分析实体名称")
	rootCmd.Flags().IntVar(&week, "week", 0, "报告中的分析周数")
	rootCmd.Flags().BoolVar(&ordered, "ordered", false, "按规则依赖拓扑顺序评估")
	rootCmd.Flags().BoolVar(&noHistory, "no-history", false, "不记录运行历史")

	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		emitFailure(err)
	}
}

// runAnalyze 执行分析并把结果 JSON 写到标准输出。
// 致命失败也走标准输出的失败对象，退出码对 RPA 不承载语义。
func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
	}
	if entity == "" {
		entity = cfg.Business.Entity
	}
	if week == 0 {
		week = cfg.Business.Week
	}
	if ruleSheet == "" {
		ruleSheet = cfg.Rules.SheetName
	}

	var history *store.Store
	if !noHistory {
		history, err = store.New(cfg.HistoryDBPath())
		if err != nil {
			logger.Printf("运行历史存储不可用: %v", err)
			history = nil
		} else {
			defer history.Close()
		}
	}

	svc := service.New(history, logger)
	out, err := svc.Analyze(service.Options{
		DataFile:   args[0],
		RuleFile:   ruleFile,
		RuleSheet:  ruleSheet,
		OutputFile: outputFile,
		ReportFile: reportFile,
		Entity:     entity,
		Week:       week,
		Ordered:    ordered,
	})
	if err != nil {
		emitFailure(err)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out.Results); err != nil {
		emitFailure(err)
	}
	return nil
}

// emitFailure 把致命错误以固定结构写到标准输出
func emitFailure(err error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
	fmt.Println(string(payload))
}

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 RPA 分析接口服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr, "", log.LstdFlags)

			cfg, err := config.LoadConfig()
			if err != nil {
				logger.Printf("加载配置失败，使用默认配置: %v", err)
				cfg = config.DefaultConfig()
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			fmt.Println("==========================================")
			fmt.Println("  kpilens - 采购数据规则分析服务")
			fmt.Println("==========================================")

			srv, err := server.NewServer(cfg, logger)
			if err != nil {
				return fmt.Errorf("初始化服务失败: %w", err)
			}
			defer srv.Close()

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
			return srv.Run(addr)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "服务端口（覆盖配置文件）")
	return cmd
}
