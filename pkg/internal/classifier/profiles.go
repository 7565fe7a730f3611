// Package classifier 实现混合（规则 + 机器学习）文档分类与模型再训练.
//
// 规则通路读取文档类型画像（关键词 + 正则模式），机器学习通路使用
// TF-IDF 向量化 + 朴素贝叶斯；两路候选按固定阈值仲裁.
package classifier

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

// FieldPattern 画像中的正则模式；Field 非空时同时用于字段抽取.
type FieldPattern struct {
	Field string `json:"field,omitempty"`
	Regex string `json:"regex"`
}

// Profile 一个文档类型的画像.
type Profile struct {
	Name     string         `json:"name"`
	Keywords []string       `json:"keywords,omitempty"`
	Patterns []FieldPattern `json:"patterns,omitempty"`
}

// profilesFile 画像文件的顶层结构.
type profilesFile struct {
	DocumentTypes []Profile `json:"document_types"`
}

// LoadProfiles reads document type profiles from the JSON file at path.
// Profiles are re-read on every classification call so edits take effect
// without a restart; a missing file yields an empty profile set.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}

	var f profilesFile
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}

	return f.DocumentTypes, nil
}
