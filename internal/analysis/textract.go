package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/Lllllllleong/invoiceparser/internal/extraction"
)

// Credentials authenticate against the analysis service. When both keys are empty the
// default AWS credential chain is used.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// textractAPI is the subset of the Textract client used here.
type textractAPI interface {
	AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error)
}

// TextractAnalyzer submits invoice files to Textract AnalyzeExpense.
type TextractAnalyzer struct {
	api textractAPI
}

// NewTextractAnalyzer creates a Textract-backed analyzer for the given credentials.
func NewTextractAnalyzer(ctx context.Context, creds Credentials) (*TextractAnalyzer, error) {
	if creds.Region == "" {
		return nil, fmt.Errorf("NewTextractAnalyzer: region cannot be empty")
	}
	if (creds.AccessKeyID == "") != (creds.SecretAccessKey == "") {
		return nil, fmt.Errorf("NewTextractAnalyzer: access key id and secret access key must be set together")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(creds.Region)}
	if creds.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &TextractAnalyzer{api: textract.NewFromConfig(cfg)}, nil
}

// AnalyzeExpense sends content to the service in a single call and returns the expense
// documents it found, in response order.
func (a *TextractAnalyzer) AnalyzeExpense(ctx context.Context, content []byte) ([]extraction.ExpenseDocument, error) {
	out, err := a.api.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{Bytes: content},
	})
	if err != nil {
		return nil, fmt.Errorf("textract AnalyzeExpense: %w", err)
	}
	if out == nil {
		return nil, errors.New("textract AnalyzeExpense: empty response")
	}
	return convertExpenseDocuments(out.ExpenseDocuments), nil
}

func convertExpenseDocuments(in []types.ExpenseDocument) []extraction.ExpenseDocument {
	docs := make([]extraction.ExpenseDocument, 0, len(in))
	for i, d := range in {
		doc := extraction.ExpenseDocument{
			Index:         int(aws.ToInt32(d.ExpenseIndex)),
			SummaryFields: convertFields(d.SummaryFields),
		}
		if d.ExpenseIndex == nil {
			doc.Index = i + 1
		}
		for _, g := range d.LineItemGroups {
			group := extraction.LineItemGroup{Index: int(aws.ToInt32(g.LineItemGroupIndex))}
			for _, item := range g.LineItems {
				group.LineItems = append(group.LineItems, extraction.LineItem{
					Fields: convertFields(item.LineItemExpenseFields),
				})
			}
			doc.LineItemGroups = append(doc.LineItemGroups, group)
		}
		for _, b := range d.Blocks {
			doc.Blocks = append(doc.Blocks, extraction.Block{
				Type: string(b.BlockType),
				Text: aws.ToString(b.Text),
			})
		}
		docs = append(docs, doc)
	}
	return docs
}

func convertFields(in []types.ExpenseField) []extraction.ExpenseField {
	if len(in) == 0 {
		return nil
	}
	fields := make([]extraction.ExpenseField, 0, len(in))
	for _, f := range in {
		var field extraction.ExpenseField
		if f.Type != nil {
			field.Type = aws.ToString(f.Type.Text)
		}
		if f.LabelDetection != nil {
			field.Label = aws.ToString(f.LabelDetection.Text)
		}
		// A label without a detected value converts to an empty value, not an error.
		if f.ValueDetection != nil {
			field.Value = aws.ToString(f.ValueDetection.Text)
		}
		fields = append(fields, field)
	}
	return fields
}
