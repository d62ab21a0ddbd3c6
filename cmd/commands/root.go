package commands

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Refugee-Solidarity-Network/orientATIon/config"
	"github.com/Refugee-Solidarity-Network/orientATIon/pkg/logger"
)

// 全局命令行参数
var (
	configFile string // 配置文件路径
	logLevel   string // 日志级别覆盖
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "orientation",
	Short: "Legislation content crawler for the orientATIon corpus",
	Long: `orientation discovers legislation documents from the upstream index page,
extracts their content and builds a normalized corpus file for downstream
question answering over refugee-related legislation.`,
	SilenceUsage: true,
}

// Execute 运行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// .env文件不存在时静默跳过
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (default config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// setup 加载配置并创建日志记录器，是各子命令的公共入口
func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	appLogger := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	if err := cfg.EnsureDataDirs(); err != nil {
		return nil, nil, err
	}

	return cfg, appLogger, nil
}

// warnf 命令初始化早期、日志记录器尚未就绪时的告警输出
func warnf(format string, args ...interface{}) {
	log.Printf("Warning: "+format, args...)
}
