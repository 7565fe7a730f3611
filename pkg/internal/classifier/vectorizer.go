package classifier

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/yeisme/docuvault/pkg/textutil"
)

var tokenRun = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Vectorizer 把文本映射为 TF-IDF 稀疏向量.
// 词表在训练时固定（上限 MaxFeatures，按语料频次取最高者），
// 特征为词元 unigram + bigram，tf 取 1+log(tf)，idf 平滑，向量做 L2 归一化.
type Vectorizer struct {
	MaxFeatures int            `json:"max_features"`
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
}

// tokenize 归一化后切词，返回 unigram + bigram 特征序列.
func tokenize(text string) []string {
	words := tokenRun.FindAllString(strings.ToLower(textutil.Normalize(text)), -1)

	features := make([]string, 0, len(words)*2)
	features = append(features, words...)

	for i := 0; i+1 < len(words); i++ {
		features = append(features, words[i]+" "+words[i+1])
	}

	return features
}

// FitVectorizer builds the vocabulary and idf weights from the corpus.
func FitVectorizer(texts []string, maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = 5000
	}

	// 语料级特征频次与文档频次
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)

	for _, text := range texts {
		seen := make(map[string]bool)

		for _, f := range tokenize(text) {
			totalFreq[f]++

			if !seen[f] {
				seen[f] = true
				docFreq[f]++
			}
		}
	}

	// 频次最高的特征进词表；频次相同按字典序保证确定性
	features := make([]string, 0, len(totalFreq))
	for f := range totalFreq {
		features = append(features, f)
	}

	sort.Slice(features, func(i, j int) bool {
		if totalFreq[features[i]] != totalFreq[features[j]] {
			return totalFreq[features[i]] > totalFreq[features[j]]
		}

		return features[i] < features[j]
	})

	if len(features) > maxFeatures {
		features = features[:maxFeatures]
	}

	v := &Vectorizer{
		MaxFeatures: maxFeatures,
		Vocabulary:  make(map[string]int, len(features)),
		IDF:         make([]float64, len(features)),
	}

	n := float64(len(texts))
	for i, f := range features {
		v.Vocabulary[f] = i
		// 平滑 idf: log((1+n)/(1+df)) + 1
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[f]))) + 1
	}

	return v
}

// Transform maps text to an L2-normalized sparse tf-idf vector keyed by
// vocabulary index. Unknown features are dropped.
func (v *Vectorizer) Transform(text string) map[int]float64 {
	counts := make(map[int]int)

	for _, f := range tokenize(text) {
		if idx, ok := v.Vocabulary[f]; ok {
			counts[idx]++
		}
	}

	vec := make(map[int]float64, len(counts))

	var norm float64

	for idx, c := range counts {
		// sublinear tf
		w := (1 + math.Log(float64(c))) * v.IDF[idx]
		vec[idx] = w
		norm += w * w
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}

	return vec
}

// Size 返回词表大小.
func (v *Vectorizer) Size() int {
	return len(v.Vocabulary)
}
