package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Business BusinessConfig `toml:"business"`
	Rules    RulesConfig    `toml:"rules"`
}

// ServerConfig RPA 接口服务配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据与历史存储配置
type DataConfig struct {
	DataDir     string `toml:"data_dir"`
	HistoryPath string `toml:"history_path"`
}

// BusinessConfig 报告业务配置
type BusinessConfig struct {
	Entity string `toml:"entity"`
	Week   int    `toml:"week"`
}

// RulesConfig 规则表配置
type RulesConfig struct {
	SheetName string `toml:"sheet_name"`
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20352,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:     "data",
			HistoryPath: "",
		},
		Business: BusinessConfig{
			Entity: "默认实体",
			Week:   0,
		},
		Rules: RulesConfig{
			SheetName: "",
		},
	}
}

// HistoryDBPath 运行历史数据库路径，未显式配置时落在数据目录下
func (c *AppConfig) HistoryDBPath() string {
	if c.Data.HistoryPath != "" {
		return c.Data.HistoryPath
	}
	return filepath.Join(c.Data.DataDir, "kpilens.db")
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig 从 config.toml 加载配置。
// 配置文件位于可执行文件同目录下，不存在时返回默认配置。
func LoadConfig() (*AppConfig, error) {
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")
	if v := os.Getenv("KPILENS_CONFIG"); v != "" {
		configPath = v
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, err
	}

	// 环境变量覆盖（用于 E2E / 本地运行）
	if v := os.Getenv("KPILENS_HISTORY_PATH"); v != "" {
		config.Data.HistoryPath = v
	}

	return config, nil
}
