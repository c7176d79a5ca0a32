package extraction

import "strings"

// Lookup searches one representation of an expense document for a field whose text
// contains any of the candidate label fragments.
type Lookup func(doc ExpenseDocument, candidates []string) (string, bool)

// resolveLookup is the match order used by Resolve.
var resolveLookup = FirstMatch(SummaryFieldLookup, LineItemLookup, BlockLookup)

// Resolve returns the cleaned value of the first field matching any candidate fragment.
// Summary fields are searched first, then line items, then raw blocks.
// A false result means the field is absent from the document.
func Resolve(doc ExpenseDocument, candidates []string) (string, bool) {
	return resolveLookup(doc, candidates)
}

// FirstMatch combines lookups so that the first one reporting a match wins.
func FirstMatch(lookups ...Lookup) Lookup {
	return func(doc ExpenseDocument, candidates []string) (string, bool) {
		for _, lookup := range lookups {
			if value, ok := lookup(doc, candidates); ok {
				return value, true
			}
		}
		return "", false
	}
}

// SummaryFieldLookup matches candidates against the label of each summary field.
func SummaryFieldLookup(doc ExpenseDocument, candidates []string) (string, bool) {
	for _, field := range doc.SummaryFields {
		if containsAny(field.Label, candidates) {
			return CleanValue(field.Value), true
		}
	}
	return "", false
}

// LineItemLookup matches candidates against the type of every line-item field, walking
// groups, then line items, then fields.
func LineItemLookup(doc ExpenseDocument, candidates []string) (string, bool) {
	for _, group := range doc.LineItemGroups {
		for _, item := range group.LineItems {
			for _, field := range item.Fields {
				if containsAny(field.Type, candidates) {
					return CleanValue(field.Value), true
				}
			}
		}
	}
	return "", false
}

// BlockLookup matches candidates against the raw text of each block and returns that text.
func BlockLookup(doc ExpenseDocument, candidates []string) (string, bool) {
	for _, block := range doc.Blocks {
		if containsAny(block.Text, candidates) {
			return CleanValue(block.Text), true
		}
	}
	return "", false
}

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// NormalizeLabel lowercases s and collapses every newline variant into a single space.
func NormalizeLabel(s string) string {
	return newlineReplacer.Replace(strings.ToLower(s))
}

// CleanValue strips everything from the first colon onwards.
// "Total: 123.45" becomes "Total"; values without a colon are returned unchanged.
func CleanValue(value string) string {
	if before, _, found := strings.Cut(value, ":"); found {
		return before
	}
	return value
}

func containsAny(text string, candidates []string) bool {
	if text == "" {
		return false
	}
	normalized := NormalizeLabel(text)
	for _, candidate := range candidates {
		if strings.Contains(normalized, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}
