package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
)

// 模型制品文件名.
const (
	vectorizerFile = "vectorizer.json"
	classifierFile = "classifier.json"
	versionFile    = "version.json"
)

// Snapshot 一组不可变的模型制品；热切换时整组替换.
type Snapshot struct {
	Vectorizer *Vectorizer
	Classifier *NaiveBayes
	Version    string
}

// VersionInfo 模型版本清单（version.json）.
type VersionInfo struct {
	Version         string   `json:"version"`
	TrainingSamples int      `json:"training_samples"`
	DocumentTypes   []string `json:"document_types"`
	FeedbackSamples int      `json:"feedback_samples"`
	TrainedAt       string   `json:"trained_at"`
}

// SaveSnapshot persists all artifacts to dir atomically: each file is written
// to a temp name and renamed into place. Readers of the old artifacts are
// never exposed to a half-written set.
func SaveSnapshot(dir string, snap *Snapshot, info VersionInfo) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir %s: %w", dir, err)
	}

	artifacts := []struct {
		name string
		data any
	}{
		{vectorizerFile, snap.Vectorizer},
		{classifierFile, snap.Classifier},
		{versionFile, info},
	}

	for _, a := range artifacts {
		data, err := sonic.Marshal(a.data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", a.name, err)
		}

		tmp := filepath.Join(dir, fmt.Sprintf("%s_%s.tmp", a.name, snap.Version))
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", tmp, err)
		}

		if err := os.Rename(tmp, filepath.Join(dir, a.name)); err != nil {
			return fmt.Errorf("rename %s: %w", a.name, err)
		}
	}

	return nil
}

// LoadSnapshot reads the artifacts from dir. A missing model is not an
// error: it returns (nil, nil) and classification falls back to rules only.
func LoadSnapshot(dir string) (*Snapshot, error) {
	vecPath := filepath.Join(dir, vectorizerFile)
	clsPath := filepath.Join(dir, classifierFile)

	if _, err := os.Stat(vecPath); os.IsNotExist(err) {
		return nil, nil
	}

	if _, err := os.Stat(clsPath); os.IsNotExist(err) {
		return nil, nil
	}

	var vec Vectorizer
	if err := readJSON(vecPath, &vec); err != nil {
		return nil, err
	}

	var cls NaiveBayes
	if err := readJSON(clsPath, &cls); err != nil {
		return nil, err
	}

	snap := &Snapshot{Vectorizer: &vec, Classifier: &cls}

	var info VersionInfo
	if err := readJSON(filepath.Join(dir, versionFile), &info); err == nil {
		snap.Version = info.Version
	}

	return snap, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// NewVersion 生成时间戳版本号.
func NewVersion(t time.Time) string {
	return t.Format("20060102150405")
}
