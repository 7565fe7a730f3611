package extractor

import (
	"testing"

	"github.com/yeisme/docuvault/pkg/internal/classifier"
)

func invoiceProfiles() []classifier.Profile {
	return []classifier.Profile{
		{
			Name:     "invoice",
			Keywords: []string{"請求書"},
			Patterns: []classifier.FieldPattern{
				{Field: "invoice_no", Regex: `請求書番号[:：]\s*(\S+)`},
				{Regex: "合計"}, // 仅分类用，无字段名
			},
		},
		{
			Name:     "report",
			Keywords: []string{"報告書"},
		},
	}
}

func fieldMap(t *testing.T, text, docType string) map[string]string {
	t.Helper()

	fields := ExtractFields(text, docType, invoiceProfiles())

	out := make(map[string]string)
	for _, f := range fields {
		out[f.Name] = f.Value
	}

	return out
}

func TestExtractFieldsInvoice(t *testing.T) {
	text := "株式会社ABC 御中 請求書番号：INV-001 合計 150,000円 発行日：2023年03月15日"

	fields := ExtractFields(text, "invoice", invoiceProfiles())

	got := make(map[string]float64)
	values := make(map[string]string)

	for _, f := range fields {
		got[f.Name] = f.Confidence
		values[f.Name] = f.Value
	}

	if values["invoice_no"] != "INV-001" || got["invoice_no"] != PatternConfidence {
		t.Errorf("invoice_no = %q (%.1f), want INV-001 (0.9)", values["invoice_no"], got["invoice_no"])
	}

	if values[FieldDate] != "2023-03-15" || got[FieldDate] != DateConfidence {
		t.Errorf("date = %q (%.1f), want 2023-03-15 (0.8)", values[FieldDate], got[FieldDate])
	}

	if values[FieldAmount] != "150000" || got[FieldAmount] != AmountConfidence {
		t.Errorf("amount = %q (%.1f), want 150000 (0.8)", values[FieldAmount], got[FieldAmount])
	}

	if values[FieldCompany] != "ABC" || got[FieldCompany] != CompanyConfidence {
		t.Errorf("company = %q (%.1f), want ABC (0.7)", values[FieldCompany], got[FieldCompany])
	}
}

func TestExtractFieldsAmountGating(t *testing.T) {
	text := "報告書 合計 99,999円 2023年01月01日"

	// report 类型不抽金额
	if m := fieldMap(t, text, "report"); m[FieldAmount] != "" {
		t.Errorf("amount should not be extracted for report, got %q", m[FieldAmount])
	}

	// receipt 类型抽金额
	if m := fieldMap(t, text, "receipt"); m[FieldAmount] != "99999" {
		t.Errorf("amount = %q, want 99999 for receipt", m[FieldAmount])
	}
}

func TestExtractFieldsEmpty(t *testing.T) {
	if got := ExtractFields("", "invoice", invoiceProfiles()); got != nil {
		t.Errorf("empty text should yield nil, got %v", got)
	}

	if got := ExtractFields("text", "", invoiceProfiles()); got != nil {
		t.Errorf("empty doc type should yield nil, got %v", got)
	}
}

func TestFlattenFieldsLastWins(t *testing.T) {
	fields := ExtractFields("請求書番号：A-1 2023年01月02日", "invoice", invoiceProfiles())

	fields = append(fields, fields[0])
	fields[len(fields)-1].Value = "A-2"

	m := FlattenFields(fields)
	if m["invoice_no"] != "A-2" {
		t.Errorf("last written value should win, got %q", m["invoice_no"])
	}
}
