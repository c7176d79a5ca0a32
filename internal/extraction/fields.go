package extraction

// InvoiceFields holds the values extracted for one invoice. An empty string means the
// field was not found.
type InvoiceFields struct {
	Total            string `json:"total,omitempty"`
	TaxID            string `json:"taxId,omitempty"`
	InvoiceReference string `json:"invoiceReference,omitempty"`
	InvoiceDate      string `json:"invoiceDate,omitempty"`
}

// FieldSet lists the candidate label fragments searched for each invoice field.
type FieldSet struct {
	Total            []string
	TaxID            []string
	InvoiceReference []string
	InvoiceDate      []string
}

// DefaultFieldSet is tuned to the invoice layouts seen so far. Fragments are matched
// case-insensitively as substrings.
var DefaultFieldSet = FieldSet{
	Total:            []string{"total amount paid", "total amount inc", "balance due"},
	TaxID:            []string{"abn"},
	InvoiceReference: []string{"order id", "invoice no", "invoice number"},
	InvoiceDate:      []string{"order date", "invoice date", "issue date"},
}

// ExtractInvoiceFields resolves every field of DefaultFieldSet across docs.
func ExtractInvoiceFields(docs []ExpenseDocument) InvoiceFields {
	return DefaultFieldSet.Extract(docs)
}

// Extract resolves each field across docs in order. The first non-empty value found for a
// field is kept; later documents never overwrite it.
func (s FieldSet) Extract(docs []ExpenseDocument) InvoiceFields {
	var fields InvoiceFields
	for _, doc := range docs {
		fillFrom(&fields.Total, doc, s.Total)
		fillFrom(&fields.TaxID, doc, s.TaxID)
		fillFrom(&fields.InvoiceReference, doc, s.InvoiceReference)
		fillFrom(&fields.InvoiceDate, doc, s.InvoiceDate)
	}
	return fields
}

// Empty reports whether no field was extracted.
func (f InvoiceFields) Empty() bool {
	return f == InvoiceFields{}
}

func fillFrom(dst *string, doc ExpenseDocument, candidates []string) {
	if *dst != "" {
		return
	}
	if value, ok := Resolve(doc, candidates); ok {
		*dst = value
	}
}
