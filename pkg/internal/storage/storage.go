// Package storage 聚合热存储数据库、文档文件库与消息队列.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	dbClient := mgr.GetDBClient()
//	vaultClient := mgr.GetVaultClient()
package storage

import (
	"context"
	"sync"

	"github.com/yeisme/docuvault/pkg/configs"
	dbc "github.com/yeisme/docuvault/pkg/internal/storage/db"
	mqc "github.com/yeisme/docuvault/pkg/internal/storage/mq"
	vaultc "github.com/yeisme/docuvault/pkg/internal/storage/vault"
	nlog "github.com/yeisme/docuvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB    *dbc.Client
	Vault *vaultc.Client
	MQ    *mqc.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{}

		// DB
		if dbi, e := dbc.New(ctx, &cfg.DB); e != nil {
			err = e

			return
		} else {
			m.DB = dbi
		}

		// Vault（本地文件树 + 可选镜像）
		if vi, e := vaultc.New(ctx, &cfg.Vault, &cfg.S3); e != nil {
			err = e

			return
		} else {
			m.Vault = vi
		}

		// MQ
		if mi, e := mqc.New(ctx, &cfg.MQ); e != nil {
			err = e

			return
		} else {
			m.MQ = mi
		}

		mgr = m

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetVaultClient 获取文件库客户端.
func (m *Manager) GetVaultClient() *vaultc.Client {
	return m.Vault
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// Close 释放所有存储资源.
func (m *Manager) Close() error {
	var err error

	if m.MQ != nil {
		if e := m.MQ.Close(); e != nil {
			err = e
		}
	}

	if m.DB != nil {
		if e := m.DB.Close(); e != nil {
			err = e
		}
	}

	return err
}
