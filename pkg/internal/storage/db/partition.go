package db

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/internal/model"
)

// ArchiveDBName 分区目录内的数据库文件名.
const ArchiveDBName = "archive.db"

// periodPattern 分区期间键（YYYY-MM）.
var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Partition 一个归档分区（目录 + sqlite 文件）.
type Partition struct {
	Period string // YYYY-MM
	Dir    string
	DBPath string
}

// OpenPartition 打开分区 sqlite 文件；migrate 为 true 时迁移分区 schema（建分区时用）.
// 分区库永远是 sqlite，与热存储的数据库类型无关.
func OpenPartition(dbPath string, migrate bool) (*Client, error) {
	factory, exists := dialectorFactories[configs.SQLite]
	if !exists {
		return nil, fmt.Errorf("sqlite dialector not registered")
	}

	db, err := open(factory(fmt.Sprintf("file:%s", dbPath)))
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %s: %w", dbPath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// 分区是单写者库
	sqlDB.SetMaxOpenConns(1)

	if migrate {
		if err := db.AutoMigrate(model.Partition()...); err != nil {
			return nil, fmt.Errorf("failed to migrate partition schema: %w", err)
		}
	}

	return &Client{DB: db}, nil
}

// ListPartitions 列出归档根目录下的分区，按期间键降序（最新在前）.
// 只认 YYYY-MM 目录且其中存在 archive.db.
func ListPartitions(root string) ([]Partition, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read archive root %s: %w", root, err)
	}

	var parts []Partition

	for _, e := range entries {
		if !e.IsDir() || !periodPattern.MatchString(e.Name()) {
			continue
		}

		dbPath := filepath.Join(root, e.Name(), ArchiveDBName)
		if _, err := os.Stat(dbPath); err != nil {
			continue
		}

		parts = append(parts, Partition{
			Period: e.Name(),
			Dir:    filepath.Join(root, e.Name()),
			DBPath: dbPath,
		})
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].Period > parts[j].Period })

	return parts, nil
}

// HasContentTable 分区是否带全文内容表；联合检索只打开带内容表的分区.
func (c *Client) HasContentTable() bool {
	return c.Migrator().HasTable("document_content")
}
