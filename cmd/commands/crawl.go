package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Refugee-Solidarity-Network/orientATIon/config"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/cache"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/database"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/fetcher"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/repository"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/scraper"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/services"
	"github.com/Refugee-Solidarity-Network/orientATIon/pkg/storage"
)

var resumeFlag bool

// crawlCmd 执行一次完整的批量抓取并导出语料库
var crawlCmd = &cobra.Command{
	Use:   "crawl [index-url]",
	Short: "Crawl the legislation index and build the corpus file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().BoolVar(&resumeFlag, "resume", false, "reuse documents from the last completed run")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}

	indexURL := cfg.Scraper.IndexURL
	if len(args) > 0 {
		indexURL = args[0]
	}
	if indexURL == "" {
		return errors.New("no index URL: pass it as an argument or set scraper.index_url in config")
	}

	// 初始化数据库，用于逐篇检查点和断点续抓
	if err := database.Setup(&database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}, appLogger); err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}
	defer database.Close()

	// 页面缓存
	var pageCache cache.Cache
	if cfg.Cache.Enable {
		pageCache, err = cache.NewCache(cache.Config{
			Type:          cfg.Cache.Type,
			RedisAddr:     cfg.Cache.Address,
			RedisPassword: cfg.Cache.Password,
			RedisDB:       cfg.Cache.DB,
			DefaultTTL:    time.Duration(cfg.Cache.TTL) * time.Second,
		})
		if err != nil {
			warnf("Failed to initialize %s cache, continuing without: %v", cfg.Cache.Type, err)
			pageCache = nil
		}
	}

	// 组装抓取流水线
	fetchOpts := []fetcher.Option{fetcher.WithLogger(appLogger)}
	if pageCache != nil {
		fetchOpts = append(fetchOpts, fetcher.WithCache(pageCache, time.Duration(cfg.Cache.TTL)*time.Second))
	}
	pageFetcher := fetcher.New(fetcher.Config{
		Timeout:    cfg.Crawler.Timeout,
		MaxRetries: cfg.Crawler.MaxRetries,
		RetryDelay: cfg.Crawler.RetryDelay,
		UserAgent:  cfg.Scraper.UserAgent,
	}, fetchOpts...)

	sc := scraper.New(pageFetcher, selectorsFromConfig(cfg),
		scraper.WithMaxPages(cfg.Scraper.MaxPages),
		scraper.WithLogger(appLogger))

	crawler := services.NewCrawler(sc,
		services.WithWorkers(cfg.Crawler.Workers),
		services.WithRepository(repository.NewCrawlRepository()),
		services.WithResume(resumeFlag || cfg.Crawler.Resume),
		services.WithCrawlerLogger(appLogger))

	// 支持Ctrl+C中断，已检查点的文档不会丢失
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := crawler.Run(ctx, indexURL)
	if err != nil {
		return err
	}

	// 导出语料库和FAQ格式
	exporter := newExporter(cfg, appLogger)
	if err := exporter.WriteCorpus(cfg.Export.CorpusPath, result.Documents); err != nil {
		return err
	}
	if err := exporter.WriteFAQ(cfg.Export.FAQPath, result.Documents); err != nil {
		warnf("FAQ export skipped: %v", err)
	}

	if cfg.Export.Upload {
		objectName := fmt.Sprintf("corpus/%s.json", result.RunID)
		if _, err := exporter.Publish(cfg.Export.CorpusPath, objectName); err != nil {
			warnf("Corpus upload failed: %v", err)
		}
	}

	printSummary(result)
	return nil
}

// selectorsFromConfig 将配置转换为抓取器选择器
func selectorsFromConfig(cfg *config.Config) scraper.Selectors {
	return scraper.Selectors{
		CardContainer:   cfg.Scraper.CardContainer,
		CardLink:        cfg.Scraper.CardLink,
		NextPage:        cfg.Scraper.NextPageSelector,
		BlockText:       cfg.Scraper.BlockText,
		Accordion:       cfg.Scraper.Accordion,
		AccordionItem:   cfg.Scraper.AccordionItem,
		AccordionHeader: cfg.Scraper.AccordionHeader,
		AccordionBody:   cfg.Scraper.AccordionBody,
		TitleDelimiter:  cfg.Scraper.TitleDelimiter,
	}
}

// newExporter 按配置组装导出服务
func newExporter(cfg *config.Config, appLogger *logrus.Logger) *services.Exporter {
	opts := []services.ExporterOption{services.WithExporterLogger(appLogger)}

	store, err := newStorage(cfg)
	if err != nil {
		warnf("Failed to initialize %s storage: %v", cfg.Storage.Type, err)
	} else if store != nil {
		opts = append(opts, services.WithStorage(store))
	}

	return services.NewExporter(opts...)
}

// newStorage 按配置创建产物存储后端
func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "minio":
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		})
	case "local", "":
		return storage.NewLocalStorage(storage.LocalConfig{
			Path: cfg.Storage.Path,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// printSummary 打印抓取结果摘要
func printSummary(result *services.CrawlResult) {
	fmt.Printf("Crawl %s finished in %s\n", result.RunID, result.Duration.Round(time.Millisecond))
	fmt.Printf("  documents: %d", len(result.Documents))
	if result.Resumed > 0 {
		fmt.Printf(" (%d resumed)", result.Resumed)
	}
	fmt.Println()
	fmt.Printf("  failures:  %d\n", len(result.Failures))
	for _, f := range result.Failures {
		fmt.Printf("    [%s] %s: %s\n", f.Kind, f.URL, f.Message)
	}
}
