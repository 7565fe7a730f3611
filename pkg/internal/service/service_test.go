package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/internal/classifier"
	"github.com/yeisme/docuvault/pkg/internal/model"
	"github.com/yeisme/docuvault/pkg/internal/storage/db"
	"github.com/yeisme/docuvault/pkg/internal/storage/vault"
)

// testEnv 一套临时目录上的完整服务依赖.
type testEnv struct {
	dbClient    *db.Client
	vaultClient *vault.Client
	engine      *classifier.Engine
	archiveRoot string
	dir         string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()

	gdb, err := gorm.Open(sqlite.Open("file:"+filepath.Join(dir, "hot.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatal(err)
	}

	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(model.All()...); err != nil {
		t.Fatal(err)
	}

	vc, err := vault.New(context.Background(), &configs.VaultConfig{Path: filepath.Join(dir, "files")}, &configs.S3Config{})
	if err != nil {
		t.Fatal(err)
	}

	engine := classifier.NewEngine(configs.ClassifierConfig{
		ProfilesPath:     writeTypeProfiles(t, dir),
		ModelDir:         filepath.Join(dir, "models"),
		RetrainThreshold: 20,
		MinTrainSamples:  10,
		MaxTrainDocs:     1000,
		MaxFeatures:      5000,
	})

	return &testEnv{
		dbClient:    &db.Client{DB: gdb},
		vaultClient: vc,
		engine:      engine,
		archiveRoot: filepath.Join(dir, "archives"),
		dir:         dir,
	}
}

func writeTypeProfiles(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "doc_types.json")
	data := `{
  "document_types": [
    {
      "name": "invoice",
      "keywords": ["請求書", "合計"],
      "patterns": [
        {"field": "invoice_no", "regex": "請求書番号[:：]\\s*(\\S+)"},
        {"regex": "合計"}
      ]
    },
    {
      "name": "quotation",
      "keywords": ["見積書", "有効期限"],
      "patterns": [{"regex": "見積"}]
    }
  ]
}`

	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func (e *testEnv) documentService() *DocumentService {
	return &DocumentService{
		dbClient:    e.dbClient,
		vaultClient: e.vaultClient,
		engine:      e.engine,
		extractor:   PlainTextExtractor{},
	}
}

func (e *testEnv) searchService() *SearchService {
	return &SearchService{dbClient: e.dbClient, archiveRoot: e.archiveRoot}
}

func (e *testEnv) archiveService(cfg configs.ArchiveConfig) *ArchiveService {
	if cfg.Path == "" {
		cfg.Path = e.archiveRoot
	}

	if cfg.KeepCount == 0 {
		cfg.KeepCount = 24
	}

	return &ArchiveService{
		dbClient:    e.dbClient,
		vaultClient: e.vaultClient,
		cfg:         cfg,
	}
}

func (e *testEnv) feedbackService() *FeedbackService {
	return &FeedbackService{dbClient: e.dbClient, engine: e.engine}
}
