package extraction

import "testing"

func TestCleanValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Total: 123.45", "Total"},
		{"123.45", "123.45"},
		{"a:b:c", "a"},
		{":leading", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanValue(tt.in); got != tt.want {
			t.Errorf("CleanValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Invoice\nNumber", "invoice number"},
		{"Invoice\r\nNumber", "invoice number"},
		{"Invoice\rNumber", "invoice number"},
		{"TOTAL\n\nAMOUNT", "total  amount"},
		{"ABN", "abn"},
	}
	for _, tt := range tests {
		if got := NormalizeLabel(tt.in); got != tt.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		doc        ExpenseDocument
		candidates []string
		want       string
		wantOK     bool
	}{
		{
			name: "summary field match",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Label: "Invoice Number", Value: "INV-001"}},
			},
			candidates: []string{"invoice number"},
			want:       "INV-001",
			wantOK:     true,
		},
		{
			name: "summary label is case and newline insensitive",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Label: "TOTAL AMOUNT\r\nPAID", Value: "$99.00"}},
			},
			candidates: []string{"total amount paid"},
			want:       "$99.00",
			wantOK:     true,
		},
		{
			name: "candidate fragments are lowercased",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Label: "abn", Value: "12 345"}},
			},
			candidates: []string{"ABN"},
			want:       "12 345",
			wantOK:     true,
		},
		{
			name: "first entry in structural order wins over candidate priority",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{
					{Label: "Balance Due", Value: "10.00"},
					{Label: "Total Amount Paid", Value: "20.00"},
				},
			},
			candidates: []string{"total amount paid", "balance due"},
			want:       "10.00",
			wantOK:     true,
		},
		{
			name: "summary value is cleaned",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Label: "Invoice Date", Value: "Date: 2023-01-01"}},
			},
			candidates: []string{"invoice date"},
			want:       "Date",
			wantOK:     true,
		},
		{
			name: "summary type is not matched",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Type: "INVOICE_RECEIPT_ID", Value: "X"}},
				Blocks:        []Block{{Text: "no match here"}},
			},
			candidates: []string{"invoice_receipt_id"},
			wantOK:     false,
		},
		{
			name: "line item used only when no summary field matches",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Label: "Vendor", Value: "ACME"}},
				LineItemGroups: []LineItemGroup{{
					LineItems: []LineItem{
						{Fields: []ExpenseField{{Type: "ITEM", Value: "Widget"}}},
						{Fields: []ExpenseField{{Type: "ORDER ID", Value: "ORD-7"}}},
					},
				}},
			},
			candidates: []string{"order id"},
			want:       "ORD-7",
			wantOK:     true,
		},
		{
			name: "first matching line item across groups",
			doc: ExpenseDocument{
				LineItemGroups: []LineItemGroup{
					{LineItems: []LineItem{{Fields: []ExpenseField{{Type: "PRICE", Value: "1"}}}}},
					{LineItems: []LineItem{
						{Fields: []ExpenseField{{Type: "Balance\nDue", Value: "42.00"}}},
						{Fields: []ExpenseField{{Type: "balance due", Value: "43.00"}}},
					}},
				},
			},
			candidates: []string{"balance due"},
			want:       "42.00",
			wantOK:     true,
		},
		{
			name: "summary beats line item",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Label: "ABN", Value: "11"}},
				LineItemGroups: []LineItemGroup{{
					LineItems: []LineItem{{Fields: []ExpenseField{{Type: "ABN", Value: "22"}}}},
				}},
			},
			candidates: []string{"abn"},
			want:       "11",
			wantOK:     true,
		},
		{
			name: "block fallback returns cleaned block text",
			doc: ExpenseDocument{
				SummaryFields: []ExpenseField{{Label: "Vendor", Value: "ACME"}},
				Blocks: []Block{
					{Type: "LINE", Text: "Thanks for shopping"},
					{Type: "LINE", Text: "ABN: 51 824 753 556"},
				},
			},
			candidates: []string{"abn"},
			want:       "ABN",
			wantOK:     true,
		},
		{
			name: "block text without colon returned unchanged",
			doc: ExpenseDocument{
				Blocks: []Block{{Text: "Invoice No 1234"}},
			},
			candidates: []string{"invoice no"},
			want:       "Invoice No 1234",
			wantOK:     true,
		},
		{
			name: "no tier matches",
			doc: ExpenseDocument{
				SummaryFields:  []ExpenseField{{Label: "Vendor", Value: "ACME"}},
				LineItemGroups: []LineItemGroup{{LineItems: []LineItem{{Fields: []ExpenseField{{Type: "ITEM"}}}}}},
				Blocks:         []Block{{Text: "hello"}},
			},
			candidates: []string{"abn"},
			wantOK:     false,
		},
		{
			name:       "empty candidates match nothing",
			doc:        ExpenseDocument{SummaryFields: []ExpenseField{{Label: "ABN", Value: "1"}}},
			candidates: nil,
			wantOK:     false,
		},
		{
			name:       "empty document",
			doc:        ExpenseDocument{},
			candidates: []string{"abn"},
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.doc, tt.candidates)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v (value %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstMatch(t *testing.T) {
	var calls []string
	lookup := func(name, value string, ok bool) Lookup {
		return func(ExpenseDocument, []string) (string, bool) {
			calls = append(calls, name)
			return value, ok
		}
	}

	combined := FirstMatch(
		lookup("a", "", false),
		lookup("b", "found", true),
		lookup("c", "late", true),
	)
	got, ok := combined(ExpenseDocument{}, []string{"x"})
	if !ok || got != "found" {
		t.Fatalf("FirstMatch() = %q, %v; want %q, true", got, ok, "found")
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("lookups called = %v, want [a b]", calls)
	}

	if _, ok := FirstMatch()(ExpenseDocument{}, []string{"x"}); ok {
		t.Error("FirstMatch() with no lookups should not match")
	}
}
