package textutil

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"fullwidth to halfwidth", "ＡＢＣ　１２３", "ABC 123"},
		{"collapse whitespace", "a\t\tb\n\nc   d", "a b c d"},
		{"trim", "  請求書  ", "請求書"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{"japanese format", "発行日：2023年03月15日", "2023-03-15", true},
		{"slash format", "date: 2023/3/5 final", "2023-03-05", true},
		{"dash format", "2021-12-01 納品", "2021-12-01", true},
		{"year out of range", "1899年01月01日", "", false},
		{"month out of range", "2023年13月01日", "", false},
		{"calendar overflow", "2023年02月30日", "", false},
		{"no date", "合計 1000円", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDate(tt.input)
			if ok != tt.found {
				t.Fatalf("ExtractDate(%q) found = %v, want %v", tt.input, ok, tt.found)
			}

			if ok && got.Format("2006-01-02") != tt.want {
				t.Errorf("ExtractDate(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
		found bool
	}{
		{"total label", "株式会社ABC 合計 150,000円", 150000, true},
		{"total with colon", "合計：1,234円", 1234, true},
		{"amount label", "金額: ¥2,500", 2500, true},
		{"bare number", "請求書 12,345", 12345, true},
		{"no number", "請求書", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAmount(tt.input)
			if ok != tt.found {
				t.Fatalf("ExtractAmount(%q) found = %v, want %v", tt.input, ok, tt.found)
			}

			if ok && got != tt.want {
				t.Errorf("ExtractAmount(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractCompany(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{"kabushiki prefix", "株式会社ABC 合計 150,000円", "ABC", true},
		{"yugen prefix", "有限会社テスト 御中", "テスト", true},
		{"latin suffix", "Acme Inc. invoice", "Acme", true},
		{"none", "合計 1000円", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCompany(tt.input)
			if ok != tt.found {
				t.Fatalf("ExtractCompany(%q) found = %v, want %v", tt.input, ok, tt.found)
			}

			if got != tt.want {
				t.Errorf("ExtractCompany(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("apple banana apple cherry banana apple", 2, 10)
	want := []string{"apple", "banana", "cherry"}

	if len(got) != len(want) {
		t.Fatalf("Keywords returned %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keywords[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeywordsLimits(t *testing.T) {
	// 短词被过滤
	got := Keywords("a b cc dd cc", 2, 1)
	if len(got) != 1 || got[0] != "cc" {
		t.Errorf("Keywords = %v, want [cc]", got)
	}
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  string
	}{
		{
			"case insensitive whole word",
			"Invoice from ACME",
			"invoice",
			"<em>Invoice</em> from ACME",
		},
		{
			"partial ascii word not matched",
			"Invoices pending",
			"invoice",
			"Invoices pending",
		},
		{
			"japanese substring",
			"この請求書は重要です",
			"請求書",
			"この<em>請求書</em>は重要です",
		},
		{
			"multiple terms",
			"invoice for 請求書",
			"invoice 請求書",
			"<em>invoice</em> for <em>請求書</em>",
		},
		{"empty query", "text", "  ", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Highlight(tt.text, tt.query, "<em>", "</em>"); got != tt.want {
				t.Errorf("Highlight = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnippetNoHit(t *testing.T) {
	long := strings.Repeat("あ", 300)

	got := Snippet(long, "みつからない", 200)
	if got != strings.Repeat("あ", 200)+"..." {
		t.Errorf("Snippet without hit should return head window, got %d runes", len([]rune(got)))
	}

	short := "短いテキスト"
	if got := Snippet(short, "みつからない", 200); got != short {
		t.Errorf("Snippet of short text = %q, want %q", got, short)
	}
}

func TestSnippetCentered(t *testing.T) {
	text := strings.Repeat("あ", 150) + "請求書" + strings.Repeat("い", 150)

	got := Snippet(text, "請求書", 200)
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Fatalf("centered snippet should be ellipsized on both ends: %q", got)
	}

	if !strings.Contains(got, "請求書") {
		t.Errorf("snippet should contain the hit term: %q", got)
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(got, "..."), "...")
	if n := len([]rune(inner)); n != 200 {
		t.Errorf("snippet window = %d runes, want 200", n)
	}
}
