// Package textutil 提供日文业务文档的文本归一化、字段抽取与搜索摘要工具.
package textutil

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultSnippetLength 摘要窗口默认长度（按 rune 计）.
	DefaultSnippetLength = 200

	// DefaultKeywordMinLength 关键词最小长度.
	DefaultKeywordMinLength = 2
	// DefaultKeywordMaxCount 关键词最大数量.
	DefaultKeywordMaxCount = 10
)

var (
	collapseWS  = regexp.MustCompile(`[\t\n\r]+`)
	extraSpaces = regexp.MustCompile(` +`)
	wordRun     = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`),
		regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
		regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
	}

	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`合計\s*[：:]?\s*(?:¥|￥|\$)?\s*([\d,，]+)(?:\s*円)?`),
		regexp.MustCompile(`金額\s*[：:]?\s*(?:¥|￥|\$)?\s*([\d,，]+)(?:\s*円)?`),
		regexp.MustCompile(`(?:¥|￥|\$)?\s*([\d,，]+)(?:\s*円)?`),
	}

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`株式会社\s*(\S{1,30})`),
		regexp.MustCompile(`有限会社\s*(\S{1,30})`),
		regexp.MustCompile(`(\S{1,30})\s+(?:Corp\.|Inc\.|Corporation|Incorporated)`),
	}
)

// Normalize 做 NFKC 归一化并折叠空白.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = collapseWS.ReplaceAllString(text, " ")
	text = extraSpaces.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// ExtractDate 从文本抽取日期，依次尝试 YYYY年MM月DD日、YYYY/MM/DD、YYYY-MM-DD.
// 年份限定 1900–2100；无效日期（如2月30日）跳过当前模式继续.
func ExtractDate(text string) (time.Time, bool) {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}

		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date 会把 2月30日 规范化成 3月，需要回读校验
		if d.Year() != year || int(d.Month()) != month || d.Day() != day {
			continue
		}

		return d, true
	}

	return time.Time{}, false
}

// ExtractAmount 从文本抽取金额（整数円）.
// 优先 合計/金額 标注，其次取首个数字串；逗号等非数字字符剔除.
func ExtractAmount(text string) (int64, bool) {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}

			return -1
		}, m[1])
		if digits == "" {
			continue
		}

		amount, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			continue
		}

		return amount, true
	}

	return 0, false
}

// ExtractCompany 从文本抽取公司名：株式会社/有限会社 前缀，或拉丁法人后缀.
func ExtractCompany(text string) (string, bool) {
	for _, re := range companyPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		name := strings.TrimSpace(m[1])
		if name != "" {
			return name, true
		}
	}

	return "", false
}

// Keywords 按词频抽取关键词，频次相同按首次出现顺序.
func Keywords(text string, minLength, maxCount int) []string {
	if text == "" {
		return nil
	}

	if minLength <= 0 {
		minLength = DefaultKeywordMinLength
	}

	if maxCount <= 0 {
		maxCount = DefaultKeywordMaxCount
	}

	words := wordRun.FindAllString(Normalize(text), -1)

	type entry struct {
		word  string
		count int
		first int
	}

	index := make(map[string]*entry)

	var order []*entry

	for i, w := range words {
		if utf8.RuneCountInString(w) < minLength {
			continue
		}

		if e, ok := index[w]; ok {
			e.count++

			continue
		}

		e := &entry{word: w, count: 1, first: i}
		index[w] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}

		return order[i].first < order[j].first
	})

	if len(order) > maxCount {
		order = order[:maxCount]
	}

	keywords := make([]string, 0, len(order))
	for _, e := range order {
		keywords = append(keywords, e.word)
	}

	return keywords
}

// termRegexp 编译单个检索词的大小写不敏感匹配.
// Go 的 \b 只识别 ASCII 词字符，因此仅在词首/词尾是 ASCII 词字符时加边界，
// 日文词直接按子串匹配.
func termRegexp(term string) (*regexp.Regexp, error) {
	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)

	pre, post := "", ""
	if isASCIIWord(first) {
		pre = `\b`
	}

	if isASCIIWord(last) {
		post = `\b`
	}

	return regexp.Compile(`(?i)` + pre + regexp.QuoteMeta(term) + post)
}

func isASCIIWord(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}

// Highlight 用 preTag/postTag 包裹文本中命中的检索词（整词、大小写不敏感）.
func Highlight(text, query, preTag, postTag string) string {
	if text == "" || strings.TrimSpace(query) == "" {
		return text
	}

	result := text

	for _, term := range strings.Fields(Normalize(query)) {
		re, err := termRegexp(term)
		if err != nil {
			continue
		}

		result = re.ReplaceAllString(result, preTag+"$0"+postTag)
	}

	return result
}

// Snippet 抽取以最早命中词为中心的摘要窗口，长度按 rune 计，两端按需加省略号.
// 没有命中词时返回文本开头.
func Snippet(text, query string, length int) string {
	if length <= 0 {
		length = DefaultSnippetLength
	}

	runes := []rune(text)

	if text == "" || strings.TrimSpace(query) == "" {
		return truncateRunes(runes, length)
	}

	firstPos := len(runes)

	for _, term := range strings.Fields(Normalize(query)) {
		re, err := termRegexp(term)
		if err != nil {
			continue
		}

		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}

		pos := utf8.RuneCountInString(text[:loc[0]])
		if pos < firstPos {
			firstPos = pos
		}
	}

	if firstPos == len(runes) {
		return truncateRunes(runes, length)
	}

	start := firstPos - length/2
	if start < 0 {
		start = 0
	}

	end := start + length
	if end > len(runes) {
		end = len(runes)
	}

	if end == len(runes) && length < len(runes) {
		start = end - length
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}

	if end < len(runes) {
		snippet += "..."
	}

	return snippet
}

func truncateRunes(runes []rune, length int) string {
	if len(runes) > length {
		return string(runes[:length]) + "..."
	}

	return string(runes)
}
