package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ScraperConfig 页面抓取与选择器配置
// 选择器描述上游站点的索引卡片和两种内容布局
type ScraperConfig struct {
	IndexURL         string `mapstructure:"index_url"`          // 法规列表页URL
	CardContainer    string `mapstructure:"card_container"`     // 索引卡片容器选择器
	CardLink         string `mapstructure:"card_link"`          // 卡片内文档链接选择器
	NextPageSelector string `mapstructure:"next_page_selector"` // 下一页链接选择器，为空则只抓第一页
	MaxPages         int    `mapstructure:"max_pages"`          // 分页抓取的最大页数
	BlockText        string `mapstructure:"block_text"`         // 整块正文容器选择器
	Accordion        string `mapstructure:"accordion"`          // 手风琴容器选择器
	AccordionItem    string `mapstructure:"accordion_item"`     // 手风琴分节选择器
	AccordionHeader  string `mapstructure:"accordion_header"`   // 分节标题选择器
	AccordionBody    string `mapstructure:"accordion_body"`     // 分节内容选择器
	TitleDelimiter   string `mapstructure:"title_delimiter"`    // 页面标题中站点品牌的分隔符
	UserAgent        string `mapstructure:"user_agent"`         // 请求User-Agent
}

// CrawlerConfig 批量抓取配置
type CrawlerConfig struct {
	Workers    int           `mapstructure:"workers"`     // 并发抓取工作协程数
	Timeout    time.Duration `mapstructure:"timeout"`     // 单次HTTP请求超时时间
	MaxRetries int           `mapstructure:"max_retries"` // 瞬时失败的最大重试次数
	RetryDelay time.Duration `mapstructure:"retry_delay"` // 首次重试的基础延迟
	Resume     bool          `mapstructure:"resume"`      // 是否复用上次运行已提取的文档
}

// StorageConfig 语料库产物存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// CacheConfig 页面缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用页面缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型: sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// ExportConfig 语料库导出配置
type ExportConfig struct {
	CorpusPath string `mapstructure:"corpus_path"` // 语料库文件输出路径
	FAQPath    string `mapstructure:"faq_path"`    // FAQ格式导出路径
	Upload     bool   `mapstructure:"upload"`      // 是否上传到存储后端
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件路径，为空则只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单个日志文件最大大小
	MaxBackups int    `mapstructure:"max_backups"` // 保留的历史日志文件数
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	// 设置默认配置路径
	if configPath == "" {
		configPath = "config.yaml" // 默认在当前目录寻找config.yaml
	}

	// 初始化viper
	v := viper.New()

	// 设置配置文件路径和类型
	v.SetConfigFile(configPath)

	// 尝试读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，使用默认值继续运行
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 设置默认值
	setDefaults(v)

	// 支持环境变量覆盖
	v.SetEnvPrefix("ORIENTATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	// 处理存储密钥中的环境变量引用
	resConfig := processEnvironmentVariables(&config)

	return resConfig, nil
}

// processEnvironmentVariables 处理配置项中 ${VAR} 形式的环境变量引用
func processEnvironmentVariables(cfg *Config) *Config {
	cfg.Storage.AccessKey = expandEnvRef(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnvRef(cfg.Storage.SecretKey)
	cfg.Cache.Password = expandEnvRef(cfg.Cache.Password)
	return cfg
}

// expandEnvRef 将 ${VAR} 替换为对应环境变量的值
func expandEnvRef(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := value[2 : len(value)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 抓取默认配置
	v.SetDefault("scraper.card_container", "div.legislation-list")
	v.SetDefault("scraper.card_link", "div.legislation-card a")
	v.SetDefault("scraper.next_page_selector", "") // 默认只抓第一页
	v.SetDefault("scraper.max_pages", 10)
	v.SetDefault("scraper.block_text", "div.doc-paragraph")
	v.SetDefault("scraper.accordion", "div.accordion")
	v.SetDefault("scraper.accordion_item", "div.accordion-item")
	v.SetDefault("scraper.accordion_header", "button.accordion-button")
	v.SetDefault("scraper.accordion_body", "div.accordion-body")
	v.SetDefault("scraper.title_delimiter", " - ")
	v.SetDefault("scraper.user_agent", "orientATIon-crawler/1.0")

	// 批量抓取默认配置
	v.SetDefault("crawler.workers", 4)
	v.SetDefault("crawler.timeout", "20s")
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.retry_delay", "1s")
	v.SetDefault("crawler.resume", false)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data/artifacts")
	v.SetDefault("storage.bucket", "orientation")
	v.SetDefault("storage.use_ssl", false)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600) // 1小时

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/orientation.db")

	// 导出默认配置
	v.SetDefault("export.corpus_path", "data/corpus.json")
	v.SetDefault("export.faq_path", "data/faq.json")
	v.SetDefault("export.upload", false)

	// 日志默认配置
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// EnsureDataDirs 确保配置中涉及的本地目录存在
func (c *Config) EnsureDataDirs() error {
	dirs := []string{
		filepath.Dir(c.Database.DSN),
		filepath.Dir(c.Export.CorpusPath),
		filepath.Dir(c.Export.FAQPath),
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}
	return nil
}
