package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/database"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/repository"
)

var exportRunID string

// exportCmd 从已持久化的运行重新导出语料库，不访问上游站点
var exportCmd = &cobra.Command{
	Use:   "export [index-url]",
	Short: "Re-export the corpus from a previously completed crawl",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run-id", "", "export a specific run instead of the latest completed one")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}

	if err := database.Setup(&database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}, appLogger); err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}
	defer database.Close()

	repo := repository.NewCrawlRepository()

	// 选定要导出的运行
	var run *models.CrawlRun
	if exportRunID != "" {
		run, err = repo.GetRun(exportRunID)
	} else {
		indexURL := cfg.Scraper.IndexURL
		if len(args) > 0 {
			indexURL = args[0]
		}
		if indexURL == "" {
			return errors.New("no index URL: pass it as an argument, set scraper.index_url in config, or use --run-id")
		}
		run, err = repo.LatestCompletedRun(indexURL)
	}
	if err != nil {
		return err
	}

	records, err := repo.ListDocuments(run.ID)
	if err != nil {
		return err
	}

	// 从持久化记录还原规范化文档
	docs := make([]models.ExtractedDocument, 0, len(records))
	for _, rec := range records {
		var blocks []models.ContentBlock
		if err := json.Unmarshal(rec.Content, &blocks); err != nil {
			appLogger.WithError(err).WithField("url", rec.URL).Warn("Skipping record with malformed content")
			continue
		}
		docs = append(docs, models.ExtractedDocument{
			Title:   rec.Title,
			URL:     rec.URL,
			Content: blocks,
		})
	}

	exporter := newExporter(cfg, appLogger)
	if err := exporter.WriteCorpus(cfg.Export.CorpusPath, docs); err != nil {
		return err
	}
	if err := exporter.WriteFAQ(cfg.Export.FAQPath, docs); err != nil {
		warnf("FAQ export skipped: %v", err)
	}

	fmt.Printf("Exported %d documents from run %s to %s\n", len(docs), run.ID, cfg.Export.CorpusPath)
	return nil
}
