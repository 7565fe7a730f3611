package configs

import "github.com/spf13/viper"

const (
	DefaultVaultPath = "data/files" // 文档文件树根目录
)

// VaultConfig 文档文件库配置.
// 文件按 YYYY/MM/DD/<name> 的日期树存放，归档时按相对路径整体迁移.
type VaultConfig struct {
	Path string `mapstructure:"path"`
}

func (c *VaultConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("vault.path", DefaultVaultPath)
}
