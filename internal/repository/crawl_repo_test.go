package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
)

// setupTestRepo 基于临时sqlite库创建仓储
func setupTestRepo(t *testing.T) CrawlRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo_test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CrawlRun{}, &models.DocumentRecord{}, &models.FetchFailure{}))
	return NewCrawlRepositoryWithDB(db)
}

func TestCreateAndGetRun(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.CreateRun(&models.CrawlRun{
		ID:       "run-1",
		IndexURL: "https://example.org/mevzuat",
	})
	require.NoError(t, err)

	run, err := repo.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/mevzuat", run.IndexURL)
	// 状态和开始时间由创建流程自动补齐
	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	assert.Nil(t, run.FinishedAt)
}

func TestCreateRunEmptyID(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.CreateRun(&models.CrawlRun{IndexURL: "https://example.org"})
	assert.Error(t, err)
}

func TestGetRunNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetRun("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRunNotFound)
}

func TestCompleteRun(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateRun(&models.CrawlRun{ID: "run-1", IndexURL: "https://example.org"}))

	err := repo.CompleteRun("run-1", 5, 1)
	require.NoError(t, err)

	run, err := repo.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 5, run.DocumentCount)
	assert.Equal(t, 1, run.FailureCount)
	require.NotNil(t, run.FinishedAt)
}

func TestCompleteRunNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.CompleteRun("missing", 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRunNotFound)
}

func TestFailRun(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateRun(&models.CrawlRun{ID: "run-1", IndexURL: "https://example.org"}))

	err := repo.FailRun("run-1", "legislation list container not found")
	require.NoError(t, err)

	run, err := repo.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, "legislation list container not found", run.Error)
	require.NotNil(t, run.FinishedAt)
}

func TestLatestCompletedRun(t *testing.T) {
	repo := setupTestRepo(t)
	indexURL := "https://example.org/mevzuat"

	// 较早完成的运行
	require.NoError(t, repo.CreateRun(&models.CrawlRun{
		ID:        "run-old",
		IndexURL:  indexURL,
		StartedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, repo.CompleteRun("run-old", 3, 0))

	// 最近完成的运行
	require.NoError(t, repo.CreateRun(&models.CrawlRun{ID: "run-new", IndexURL: indexURL}))
	require.NoError(t, repo.CompleteRun("run-new", 4, 0))

	// 失败的运行不参与选取
	require.NoError(t, repo.CreateRun(&models.CrawlRun{ID: "run-failed", IndexURL: indexURL}))
	require.NoError(t, repo.FailRun("run-failed", "index fetch failed"))

	run, err := repo.LatestCompletedRun(indexURL)
	require.NoError(t, err)
	assert.Equal(t, "run-new", run.ID)

	// 其他索引页没有完成的运行
	_, err = repo.LatestCompletedRun("https://example.org/other")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRunNotFound)
}

func TestSaveAndListDocuments(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateRun(&models.CrawlRun{ID: "run-1", IndexURL: "https://example.org"}))

	// 乱序写入，读取时按发现顺序返回
	docs := []*models.DocumentRecord{
		{RunID: "run-1", Position: 1, Title: "Labor Code", URL: "https://example.org/doc/labor", Layout: "accordion", Content: datatypes.JSON(`[{"heading":"Eligibility","body":"Must be 18+."}]`)},
		{RunID: "run-1", Position: 0, Title: "Health Regulation", URL: "https://example.org/doc/health", Layout: "block_text", Content: datatypes.JSON(`[{"body":"All residents have access to care."}]`)},
	}
	for _, doc := range docs {
		require.NoError(t, repo.SaveDocument(doc))
	}

	records, err := repo.ListDocuments("run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Health Regulation", records[0].Title)
	assert.Equal(t, 0, records[0].Position)
	assert.Equal(t, "Labor Code", records[1].Title)
	assert.Equal(t, 1, records[1].Position)
}

func TestSaveDocumentValidation(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.SaveDocument(&models.DocumentRecord{URL: "https://example.org/doc"})
	assert.Error(t, err)

	err = repo.SaveDocument(&models.DocumentRecord{RunID: "run-1"})
	assert.Error(t, err)
}

func TestSaveAndListFailures(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateRun(&models.CrawlRun{ID: "run-1", IndexURL: "https://example.org"}))

	require.NoError(t, repo.SaveFailure(&models.FetchFailure{
		RunID:   "run-1",
		URL:     "https://example.org/doc/broken",
		Kind:    "fetch",
		Message: "request failed with status 502",
	}))

	failures, err := repo.ListFailures("run-1")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "fetch", failures[0].Kind)
	assert.Equal(t, "https://example.org/doc/broken", failures[0].URL)
}

func TestFindDocumentByURL(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.CreateRun(&models.CrawlRun{ID: "run-1", IndexURL: "https://example.org"}))
	require.NoError(t, repo.SaveDocument(&models.DocumentRecord{
		RunID:    "run-1",
		Position: 0,
		Title:    "Health Regulation",
		URL:      "https://example.org/doc/health",
		Content:  datatypes.JSON(`[]`),
	}))

	record, err := repo.FindDocumentByURL("run-1", "https://example.org/doc/health")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Health Regulation", record.Title)

	// 未找到返回nil而不是错误
	record, err = repo.FindDocumentByURL("run-1", "https://example.org/doc/missing")
	require.NoError(t, err)
	assert.Nil(t, record)
}
