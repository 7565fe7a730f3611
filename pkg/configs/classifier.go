package configs

import "github.com/spf13/viper"

const (
	DefaultProfilesPath     = "configs/doc_types.json" // 文档类型画像文件
	DefaultModelDir         = "data/models"            // 模型制品目录
	DefaultRetrainThreshold = 20                       // 触发再训练的未应用反馈数
	DefaultMinTrainSamples  = 10                       // 训练所需最小样本数
	DefaultMaxTrainDocs     = 1000                     // 参与训练的既有文档上限
	DefaultMaxFeatures      = 5000                     // 向量化特征上限
)

// ClassifierConfig 分类器配置.
type ClassifierConfig struct {
	ProfilesPath     string `mapstructure:"profiles_path"`
	ModelDir         string `mapstructure:"model_dir"`
	RetrainThreshold int    `mapstructure:"retrain_threshold" rule:"min=1"`
	MinTrainSamples  int    `mapstructure:"min_samples"       rule:"min=2"`
	MaxTrainDocs     int    `mapstructure:"max_train_docs"    rule:"min=1"`
	MaxFeatures      int    `mapstructure:"max_features"      rule:"min=100"`
}

func (c *ClassifierConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("classifier.profiles_path", DefaultProfilesPath)
	v.SetDefault("classifier.model_dir", DefaultModelDir)
	v.SetDefault("classifier.retrain_threshold", DefaultRetrainThreshold)
	v.SetDefault("classifier.min_samples", DefaultMinTrainSamples)
	v.SetDefault("classifier.max_train_docs", DefaultMaxTrainDocs)
	v.SetDefault("classifier.max_features", DefaultMaxFeatures)
}
