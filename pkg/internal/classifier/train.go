package classifier

import (
	"fmt"
	"sort"
	"time"

	"github.com/yeisme/docuvault/pkg/textutil"
)

// TrainingSample 一条训练样本.
type TrainingSample struct {
	Text  string
	Label string
}

// Train fits a fresh vectorizer and classifier on the samples and returns an
// unsaved snapshot. Samples with empty text or label are dropped before
// fitting; the caller enforces the minimum-sample rule.
func Train(samples []TrainingSample, maxFeatures int, now time.Time) (*Snapshot, VersionInfo, error) {
	texts := make([]string, 0, len(samples))
	labels := make([]string, 0, len(samples))

	for _, s := range samples {
		if s.Text == "" || s.Label == "" {
			continue
		}

		texts = append(texts, textutil.Normalize(s.Text))
		labels = append(labels, s.Label)
	}

	if len(texts) == 0 {
		return nil, VersionInfo{}, fmt.Errorf("no usable training samples")
	}

	vectorizer := FitVectorizer(texts, maxFeatures)

	vectors := make([]map[int]float64, len(texts))
	for i, t := range texts {
		vectors[i] = vectorizer.Transform(t)
	}

	nb := FitNaiveBayes(vectors, labels, vectorizer.Size())

	version := NewVersion(now)
	snap := &Snapshot{
		Vectorizer: vectorizer,
		Classifier: nb,
		Version:    version,
	}

	info := VersionInfo{
		Version:         version,
		TrainingSamples: len(texts),
		DocumentTypes:   distinct(labels),
		TrainedAt:       now.Format(time.RFC3339),
	}

	return snap, info, nil
}

func distinct(labels []string) []string {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}

	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}

	sort.Strings(out)

	return out
}
