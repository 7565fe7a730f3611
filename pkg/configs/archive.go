package configs

import "github.com/spf13/viper"

const (
	DefaultArchivePath           = "data/archives" // 归档分区根目录
	DefaultArchiveKeepCount      = 24              // 保留的归档分区数量（含zip制品）
	DefaultArchiveZip            = false           // 归档后是否压缩为zip
	DefaultArchiveRemoveAfterZip = false           // 压缩后是否删除未压缩目录
	DefaultPurgeAfterDays        = 30              // 软删除文档的清除天数
)

// ArchiveConfig 归档分区配置.
type ArchiveConfig struct {
	Path           string `mapstructure:"path"`
	KeepCount      int    `mapstructure:"keep_count"       rule:"min=1"`
	Zip            bool   `mapstructure:"zip"`
	RemoveAfterZip bool   `mapstructure:"remove_after_zip"`
	PurgeAfterDays int    `mapstructure:"purge_after_days" rule:"min=1"`
}

func (c *ArchiveConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("archive.path", DefaultArchivePath)
	v.SetDefault("archive.keep_count", DefaultArchiveKeepCount)
	v.SetDefault("archive.zip", DefaultArchiveZip)
	v.SetDefault("archive.remove_after_zip", DefaultArchiveRemoveAfterZip)
	v.SetDefault("archive.purge_after_days", DefaultPurgeAfterDays)
}
