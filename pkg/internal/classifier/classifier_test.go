package classifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/internal/types"
)

func writeProfiles(t *testing.T, dir string) string {
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

func TestClassifyByRules(t *testing.T) {
	dir := t.TempDir()

	profiles, err := LoadProfiles(writeProfiles(t, dir))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		text     string
		wantType string
		wantNil  bool
	}{
		{
			name:     "full invoice hit",
			text:     "請求書 請求書番号：INV-001 合計 150,000円",
			wantType: "invoice",
		},
		{
			name:     "quotation hit",
			text:     "見積書 有効期限 2023年12月31日 見積金額",
			wantType: "quotation",
		},
		{
			name:    "no hits below floor",
			text:    "議事録 出席者 本日の議題",
			wantNil: true,
		},
		{
			name:    "empty text",
			text:    "",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyByRules(tt.text, profiles)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected no candidate, got %+v", got)
				}

				return
			}

			if got == nil {
				t.Fatal("expected a candidate, got nil")
			}

			if got.DocType != tt.wantType {
				t.Errorf("doc_type = %s, want %s", got.DocType, tt.wantType)
			}

			if got.Source != types.SourceRule {
				t.Errorf("source = %s, want rule", got.Source)
			}

			if got.Confidence < types.RuleCandidateFloor {
				t.Errorf("confidence %f below candidate floor", got.Confidence)
			}
		})
	}
}

func TestClassifyByRulesScore(t *testing.T) {
	// 2/2 关键词 + 1/1 模式 => 0.4 + 0.6 = 1.0
	profiles := []Profile{{
		Name:     "invoice",
		Keywords: []string{"請求書", "合計"},
		Patterns: []FieldPattern{{Regex: "合計"}},
	}}

	got := ClassifyByRules("請求書 合計 1000円", profiles)
	if got == nil {
		t.Fatal("expected candidate")
	}

	if got.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0", got.Confidence)
	}

	// 1/2 关键词、0/1 模式 => 0.2，低于候选下限
	got = ClassifyByRules("請求書だけ", profiles)
	if got != nil {
		t.Errorf("score below floor should yield nil, got %+v", got)
	}
}

func TestArbitrate(t *testing.T) {
	rule := func(c float64) *types.Candidate {
		return &types.Candidate{DocType: "invoice", Confidence: c, Source: types.SourceRule}
	}
	ml := func(c float64) *types.Candidate {
		return &types.Candidate{DocType: "report", Confidence: c, Source: types.SourceML}
	}

	tests := []struct {
		name       string
		rule       *types.Candidate
		ml         *types.Candidate
		wantSource string
		wantNil    bool
	}{
		{"ml above threshold wins", rule(0.5), ml(0.65), types.SourceML, false},
		{"higher confidence wins", rule(0.55), ml(0.4), types.SourceRule, false},
		{"ml higher below threshold", rule(0.35), ml(0.5), types.SourceML, false},
		{"tie goes to rule", rule(0.5), ml(0.5), types.SourceRule, false},
		{"rule only", rule(0.4), nil, types.SourceRule, false},
		{"ml only", nil, ml(0.3), types.SourceML, false},
		{"both absent", nil, nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Arbitrate(tt.rule, tt.ml)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}

				return
			}

			if got == nil {
				t.Fatal("expected classification, got nil")
			}

			if got.Source != tt.wantSource {
				t.Errorf("source = %s, want %s", got.Source, tt.wantSource)
			}
		})
	}
}

func trainingSamples() []TrainingSample {
	return []TrainingSample{
		{Text: "請求書 合計 金額 お支払い 請求書番号", Label: "invoice"},
		{Text: "請求書 合計金額 振込先 お支払い期限", Label: "invoice"},
		{Text: "請求書 金額 消費税 合計", Label: "invoice"},
		{Text: "御請求書 お支払い 合計 銀行振込", Label: "invoice"},
		{Text: "見積書 有効期限 見積金額 納期", Label: "quotation"},
		{Text: "御見積書 見積 有効期限 単価", Label: "quotation"},
		{Text: "見積書 納期 見積金額 御中", Label: "quotation"},
		{Text: "お見積り 有効期限 見積 単価 数量", Label: "quotation"},
		{Text: "議事録 出席者 議題 決定事項", Label: "minutes"},
		{Text: "会議 議事録 出席者 次回予定", Label: "minutes"},
	}
}

func TestTrainAndPredict(t *testing.T) {
	snap, info, err := Train(trainingSamples(), 5000, time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	if info.Version != "20230601120000" {
		t.Errorf("version = %s, want timestamp format", info.Version)
	}

	if info.TrainingSamples != 10 {
		t.Errorf("training samples = %d, want 10", info.TrainingSamples)
	}

	if len(info.DocumentTypes) != 3 {
		t.Errorf("document types = %v, want 3 classes", info.DocumentTypes)
	}

	vec := snap.Vectorizer.Transform("請求書 合計 お支払い 金額")

	label, confidence := snap.Classifier.Predict(vec)
	if label != "invoice" {
		t.Errorf("predicted %s, want invoice", label)
	}

	if confidence <= 0 || confidence > 1 {
		t.Errorf("confidence %f out of range", confidence)
	}
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	snap, info, err := Train(trainingSamples(), 5000, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if err := SaveSnapshot(dir, snap, info); err != nil {
		t.Fatal(err)
	}

	// 没有残留的临时文件
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp artifact left behind: %s", e.Name())
		}
	}

	loaded, err := LoadSnapshot(dir)
	if err != nil {
		t.Fatal(err)
	}

	if loaded == nil {
		t.Fatal("expected snapshot")
	}

	if loaded.Version != snap.Version {
		t.Errorf("version = %s, want %s", loaded.Version, snap.Version)
	}

	vec := loaded.Vectorizer.Transform("見積書 有効期限 見積金額")

	label, _ := loaded.Classifier.Predict(vec)
	if label != "quotation" {
		t.Errorf("predicted %s after reload, want quotation", label)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	snap, err := LoadSnapshot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if snap != nil {
		t.Errorf("expected nil snapshot for empty dir, got %+v", snap)
	}
}

func TestEngineClassifyRuleFastPath(t *testing.T) {
	dir := t.TempDir()
	profilesPath := writeProfiles(t, dir)

	e := NewEngine(configs.ClassifierConfig{
		ProfilesPath: profilesPath,
		ModelDir:     filepath.Join(dir, "models"),
		MaxFeatures:  5000,
	})

	got := e.Classify("請求書 請求書番号：INV-001 合計 150,000円")
	if got == nil {
		t.Fatal("expected classification")
	}

	if got.DocType != "invoice" || got.Source != types.SourceRule {
		t.Errorf("got %+v, want invoice via rule", got)
	}
}

func TestEngineClassifyMLPath(t *testing.T) {
	dir := t.TempDir()

	e := NewEngine(configs.ClassifierConfig{
		ProfilesPath: filepath.Join(dir, "missing.json"),
		ModelDir:     filepath.Join(dir, "models"),
		MaxFeatures:  5000,
	})

	if e.ModelVersion() != "" {
		t.Fatalf("fresh engine should have no model, got %s", e.ModelVersion())
	}

	snap, _, err := Train(trainingSamples(), 5000, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	e.Swap(snap)

	if e.ModelVersion() != snap.Version {
		t.Errorf("engine version = %s, want %s", e.ModelVersion(), snap.Version)
	}

	// 画像缺失时走 ML 通路
	got := e.Classify("請求書 合計 お支払い 金額 消費税")
	if got == nil {
		t.Fatal("expected ML classification")
	}

	if got.DocType != "invoice" || got.Source != types.SourceML {
		t.Errorf("got %+v, want invoice via ml", got)
	}
}
