package extraction

// ExpenseDocument is one unit of structured output from the expense analysis service.
// The same invoice content is exposed three ways, in descending match priority:
// summary fields, line-item groups and raw text blocks.
type ExpenseDocument struct {
	Index          int             `json:"index"`
	SummaryFields  []ExpenseField  `json:"summaryFields,omitempty"`
	LineItemGroups []LineItemGroup `json:"lineItemGroups,omitempty"`
	Blocks         []Block         `json:"blocks,omitempty"`
}

// ExpenseField is a detected label/value pair. Type holds the service's normalized field
// type, Label the label text as printed on the document.
type ExpenseField struct {
	Type  string `json:"type,omitempty"`
	Label string `json:"label,omitempty"`
	Value string `json:"value,omitempty"`
}

// LineItemGroup is a collection of itemized entries, e.g. one table on the invoice.
type LineItemGroup struct {
	Index     int        `json:"index"`
	LineItems []LineItem `json:"lineItems,omitempty"`
}

// LineItem is a single row of a line-item group.
type LineItem struct {
	Fields []ExpenseField `json:"fields,omitempty"`
}

// Block is an undifferentiated fragment of detected text.
type Block struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}
