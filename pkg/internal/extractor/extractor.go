// Package extractor 从文档文本中抽取结构化字段.
//
// 先按类型画像的正则模式抽取（首个匹配的首个捕获组），再补齐通用字段：
// 日期、金额（仅请求书/见积书/领收书）、公司名；各字段带固定置信度.
package extractor

import (
	"regexp"
	"strconv"

	"github.com/yeisme/docuvault/pkg/internal/classifier"
	"github.com/yeisme/docuvault/pkg/internal/types"
	nlog "github.com/yeisme/docuvault/pkg/log"
	"github.com/yeisme/docuvault/pkg/textutil"
)

// 字段置信度：画像正则 > 日期/金额 > 公司名.
const (
	PatternConfidence = 0.9
	DateConfidence    = 0.8
	AmountConfidence  = 0.8
	CompanyConfidence = 0.7
)

// 通用字段名.
const (
	FieldDate    = "date"
	FieldAmount  = "amount"
	FieldCompany = "company"
)

// amountTypes 金额抽取只对这些类型生效.
var amountTypes = map[string]bool{
	"invoice":   true,
	"quotation": true,
	"receipt":   true,
}

// ExtractFields runs type-specific pattern extraction followed by the common
// fields. On field name collision the pattern value wins (common extraction
// skips names already present). An empty result is valid.
func ExtractFields(text, docType string, profiles []classifier.Profile) []types.ExtractedField {
	if text == "" || docType == "" {
		return nil
	}

	var fields []types.ExtractedField

	present := make(map[string]bool)

	for _, p := range profiles {
		if p.Name != docType {
			continue
		}

		for _, pat := range p.Patterns {
			if pat.Field == "" || pat.Regex == "" {
				continue
			}

			re, err := regexp.Compile(pat.Regex)
			if err != nil {
				nlog.Logger().Warn().Str("field", pat.Field).Str("regex", pat.Regex).Msg("invalid extraction pattern")

				continue
			}

			m := re.FindStringSubmatch(text)
			if m == nil || len(m) < 2 {
				continue
			}

			fields = append(fields, types.ExtractedField{
				Name:       pat.Field,
				Value:      m[1],
				Confidence: PatternConfidence,
			})
			present[pat.Field] = true
		}

		break
	}

	if !present[FieldDate] {
		if d, ok := textutil.ExtractDate(text); ok {
			fields = append(fields, types.ExtractedField{
				Name:       FieldDate,
				Value:      d.Format("2006-01-02"),
				Confidence: DateConfidence,
			})
		}
	}

	if !present[FieldAmount] && amountTypes[docType] {
		if amount, ok := textutil.ExtractAmount(text); ok {
			fields = append(fields, types.ExtractedField{
				Name:       FieldAmount,
				Value:      strconv.FormatInt(amount, 10),
				Confidence: AmountConfidence,
			})
		}
	}

	if !present[FieldCompany] {
		if company, ok := textutil.ExtractCompany(text); ok {
			fields = append(fields, types.ExtractedField{
				Name:       FieldCompany,
				Value:      company,
				Confidence: CompanyConfidence,
			})
		}
	}

	return fields
}

// FlattenFields 把字段列表压平为 name->value 映射；同名字段后写的胜出.
func FlattenFields(fields []types.ExtractedField) map[string]string {
	if len(fields) == 0 {
		return nil
	}

	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}

	return out
}
