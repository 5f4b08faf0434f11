package server

import (
	"log"

	"github.com/gin-gonic/gin"

	"kpilens/internal/config"
	"kpilens/internal/service"
	"kpilens/internal/store"
)

// Server RPA 分析接口 HTTP 服务器
type Server struct {
	router  *gin.Engine
	history *store.Store
	logger  *log.Logger
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig, logger *log.Logger) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	history, err := store.New(cfg.HistoryDBPath())
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  gin.Default(),
		history: history,
		logger:  logger,
	}

	s.setupRoutes(cfg)
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(cfg *config.AppConfig) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	svc := service.New(s.history, s.logger)
	h := NewHandlers(svc, s.history, cfg)

	api := s.router.Group("/api")
	{
		h.RegisterRoutes(api)
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Router 获取路由（用于测试）
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close 释放历史存储
func (s *Server) Close() error {
	return s.history.Close()
}
