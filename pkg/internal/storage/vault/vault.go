// Package vault 管理文档文件树：本地文件系统为真源，可选 MinIO 异地镜像.
// 文件按 YYYY/MM/DD/<name> 的日期树存放，数据库只记录相对路径.
package vault

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/docuvault/pkg/configs"
	nlog "github.com/yeisme/docuvault/pkg/log"
)

// Client 文档文件库.
type Client struct {
	root   string
	mirror *minio.Client
	bucket string
}

// New 初始化文件库；启用镜像时连接 MinIO 并确保 bucket 存在.
func New(ctx context.Context, cfg *configs.VaultConfig, s3cfg *configs.S3Config) (*Client, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault root %s: %w", cfg.Path, err)
	}

	c := &Client{root: cfg.Path}

	if s3cfg != nil && s3cfg.Enabled {
		endpoint := s3cfg.Endpoint
		// 允许用户传完整 schema endpoint（http:// 或 https://）
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
			if u.Scheme == "https" {
				s3cfg.UseSSL = true
			}
		}

		cli, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
			Secure: s3cfg.UseSSL,
			Region: s3cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}

		cli.SetAppInfo("docuvault", configs.AppVersion)

		exists, err := cli.BucketExists(ctx, s3cfg.BucketName)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", s3cfg.BucketName, err)
		}

		if !exists {
			if err := cli.MakeBucket(ctx, s3cfg.BucketName, minio.MakeBucketOptions{Region: s3cfg.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", s3cfg.BucketName, err)
			}
		}

		c.mirror = cli
		c.bucket = s3cfg.BucketName

		nlog.Logger().Info().Str("endpoint", s3cfg.Endpoint).Str("bucket", s3cfg.BucketName).Msg("vault mirror connected")
	}

	nlog.Logger().Info().Str("root", cfg.Path).Msg("vault initialized")

	return c, nil
}

// Root 返回文件库根目录.
func (c *Client) Root() string {
	return c.root
}

// DatePath 生成日期树相对路径，重名文件追加短 uuid 前缀由调用方处理.
func DatePath(t time.Time, fileName string) string {
	return filepath.Join(
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		fmt.Sprintf("%02d", t.Day()),
		fileName,
	)
}

// Store 把文件写入相对路径，已存在则报错；镜像启用时异步上传失败只记日志.
func (c *Client) Store(ctx context.Context, relPath string, data []byte) error {
	abs := filepath.Join(c.root, relPath)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", relPath, err)
	}

	if _, err := os.Stat(abs); err == nil {
		return fmt.Errorf("file already exists: %s", relPath)
	}

	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return fmt.Errorf("write file %s: %w", relPath, err)
	}

	c.mirrorFile(ctx, relPath, abs)

	return nil
}

// mirrorFile 上传到镜像 bucket；失败不影响主流程.
func (c *Client) mirrorFile(ctx context.Context, relPath, abs string) {
	if c.mirror == nil {
		return
	}

	key := filepath.ToSlash(relPath)
	if _, err := c.mirror.FPutObject(ctx, c.bucket, key, abs, minio.PutObjectOptions{}); err != nil {
		nlog.Logger().Warn().Err(err).Str("key", key).Msg("vault mirror upload failed")
	}
}

// MirrorArtifact 把归档制品（zip 等）镜像到 archives/ 前缀下.
func (c *Client) MirrorArtifact(ctx context.Context, path string) {
	if c.mirror == nil {
		return
	}

	key := "archives/" + filepath.Base(path)
	if _, err := c.mirror.FPutObject(ctx, c.bucket, key, path, minio.PutObjectOptions{}); err != nil {
		nlog.Logger().Warn().Err(err).Str("key", key).Msg("archive artifact mirror failed")
	}
}

// Read 读取相对路径的文件.
func (c *Client) Read(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(c.root, relPath))
}

// Remove 删除相对路径的文件；不存在不报错.
func (c *Client) Remove(relPath string) error {
	err := os.Remove(filepath.Join(c.root, relPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// Abs 返回相对路径对应的绝对路径.
func (c *Client) Abs(relPath string) string {
	return filepath.Join(c.root, relPath)
}

// Exists 判断文件是否存在.
func (c *Client) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(c.root, relPath))

	return err == nil
}

// SniffMime 按扩展名推断 MIME 类型.
func SniffMime(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
