package classifier

import (
	"sync/atomic"

	"github.com/yeisme/docuvault/pkg/configs"
	"github.com/yeisme/docuvault/pkg/internal/types"
	nlog "github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/textutil"
)

// Engine 混合分类引擎.
// 模型快照放在 atomic.Pointer 里，分类调用与再训练热切换互不阻塞；
// 类型画像每次分类都从磁盘重读，编辑画像即时生效.
type Engine struct {
	cfg  configs.ClassifierConfig
	snap atomic.Pointer[Snapshot]
}

// NewEngine creates the engine and loads the persisted model if present.
func NewEngine(cfg configs.ClassifierConfig) *Engine {
	e := &Engine{cfg: cfg}

	snap, err := LoadSnapshot(cfg.ModelDir)
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("classifier model load failed, rules only")
	} else if snap != nil {
		e.snap.Store(snap)
		nlog.Logger().Info().Str("version", snap.Version).Msg("classifier model loaded")
	}

	return e
}

// Config 返回引擎配置.
func (e *Engine) Config() configs.ClassifierConfig {
	return e.cfg
}

// Snapshot 返回当前模型快照，可能为 nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Swap 热切换模型快照.
func (e *Engine) Swap(snap *Snapshot) {
	e.snap.Store(snap)
}

// ModelVersion 当前模型版本，未加载时为空串.
func (e *Engine) ModelVersion() string {
	if s := e.snap.Load(); s != nil {
		return s.Version
	}

	return ""
}

// ClassifyByML runs the ML path; nil when no model is loaded or the vector
// is empty.
func (e *Engine) ClassifyByML(text string) *types.Candidate {
	snap := e.snap.Load()
	if snap == nil || snap.Vectorizer == nil || snap.Classifier == nil {
		return nil
	}

	vec := snap.Vectorizer.Transform(text)
	if len(vec) == 0 {
		return nil
	}

	label, confidence := snap.Classifier.Predict(vec)
	if label == "" {
		return nil
	}

	return &types.Candidate{
		DocType:    label,
		Confidence: confidence,
		Source:     types.SourceML,
	}
}

// Classify runs both paths and arbitrates:
//
//  1. rule candidate with confidence >= 0.8 wins outright
//  2. otherwise an ML candidate with confidence >= 0.6 wins
//  3. otherwise the higher-confidence candidate wins, rule on ties
//  4. otherwise whichever candidate exists; nil when both are absent
//
// A nil result is a valid outcome (document stays untyped), not an error.
func (e *Engine) Classify(text string) *types.Classification {
	if text == "" {
		return nil
	}

	text = textutil.Normalize(text)

	profiles, err := LoadProfiles(e.cfg.ProfilesPath)
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("profile load failed, skipping rule path")
	}

	ruleCand := ClassifyByRules(text, profiles)
	if ruleCand != nil && ruleCand.Confidence >= types.RuleAcceptThreshold {
		return toClassification(ruleCand)
	}

	return Arbitrate(ruleCand, e.ClassifyByML(text))
}

// Arbitrate resolves the rule/ML candidate pair after the rule fast path:
// an ML candidate at or above its threshold wins, then the higher confidence
// wins with ties going to the rule candidate, then whichever candidate exists.
func Arbitrate(ruleCand, mlCand *types.Candidate) *types.Classification {
	if mlCand != nil && mlCand.Confidence >= types.MLAcceptThreshold {
		return toClassification(mlCand)
	}

	if ruleCand != nil && mlCand != nil {
		if ruleCand.Confidence >= mlCand.Confidence {
			return toClassification(ruleCand)
		}

		return toClassification(mlCand)
	}

	if ruleCand != nil {
		return toClassification(ruleCand)
	}

	if mlCand != nil {
		return toClassification(mlCand)
	}

	return nil
}

func toClassification(c *types.Candidate) *types.Classification {
	return &types.Classification{
		DocType:    c.DocType,
		Confidence: c.Confidence,
		Source:     c.Source,
	}
}
