package classifier

import (
	"math"
	"sort"
)

// NaiveBayes 多项式朴素贝叶斯分类器，特征权重为 tf-idf 值（laplace 平滑）.
type NaiveBayes struct {
	Classes       []string    `json:"classes"`
	ClassLogPrior []float64   `json:"class_log_prior"`
	FeatureLogPdf [][]float64 `json:"feature_log_prob"` // [class][feature]
	FeatureCount  int         `json:"feature_count"`
}

const smoothingAlpha = 1.0

// FitNaiveBayes trains the classifier on tf-idf vectors and their labels.
// Classes are sorted for deterministic artifacts.
func FitNaiveBayes(vectors []map[int]float64, labels []string, featureCount int) *NaiveBayes {
	classSet := make(map[string]bool)
	for _, l := range labels {
		classSet[l] = true
	}

	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}

	sort.Strings(classes)

	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	nb := &NaiveBayes{
		Classes:       classes,
		ClassLogPrior: make([]float64, len(classes)),
		FeatureLogPdf: make([][]float64, len(classes)),
		FeatureCount:  featureCount,
	}

	// 按类累计特征权重
	classCounts := make([]float64, len(classes))
	featureSums := make([][]float64, len(classes))

	for i := range classes {
		featureSums[i] = make([]float64, featureCount)
	}

	for i, vec := range vectors {
		ci := classIdx[labels[i]]
		classCounts[ci]++

		for idx, w := range vec {
			featureSums[ci][idx] += w
		}
	}

	total := float64(len(vectors))
	for ci := range classes {
		nb.ClassLogPrior[ci] = math.Log(classCounts[ci] / total)

		var sum float64
		for _, w := range featureSums[ci] {
			sum += w
		}

		denom := sum + smoothingAlpha*float64(featureCount)

		nb.FeatureLogPdf[ci] = make([]float64, featureCount)
		for fi := 0; fi < featureCount; fi++ {
			nb.FeatureLogPdf[ci][fi] = math.Log((featureSums[ci][fi] + smoothingAlpha) / denom)
		}
	}

	return nb
}

// Predict returns the most probable class and its normalized probability.
func (nb *NaiveBayes) Predict(vec map[int]float64) (string, float64) {
	if len(nb.Classes) == 0 {
		return "", 0
	}

	logJoint := make([]float64, len(nb.Classes))

	for ci := range nb.Classes {
		s := nb.ClassLogPrior[ci]

		for idx, w := range vec {
			if idx < len(nb.FeatureLogPdf[ci]) {
				s += w * nb.FeatureLogPdf[ci][idx]
			}
		}

		logJoint[ci] = s
	}

	// log-sum-exp 归一化得到概率
	maxLog := logJoint[0]
	for _, v := range logJoint[1:] {
		if v > maxLog {
			maxLog = v
		}
	}

	var sum float64

	probs := make([]float64, len(logJoint))
	for i, v := range logJoint {
		probs[i] = math.Exp(v - maxLog)
		sum += probs[i]
	}

	bestIdx := 0

	for i := range probs {
		probs[i] /= sum
		if probs[i] > probs[bestIdx] {
			bestIdx = i
		}
	}

	return nb.Classes[bestIdx], probs[bestIdx]
}
