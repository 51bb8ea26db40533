package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// DocumentStore reads and overwrites a shared document.
type DocumentStore interface {
	ReadText(ctx context.Context, documentID string) (string, error)
	ReplaceText(ctx context.Context, documentID, text string) error
}

// DocsGateway is the Google Docs implementation of DocumentStore.
type DocsGateway struct {
	service *docs.Service
	logger  *log.Logger
}

var _ DocumentStore = &DocsGateway{}

func NewDocsGateway(ctx context.Context, logger *log.Logger, opts ...option.ClientOption) (*DocsGateway, error) {
	svc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}
	return &DocsGateway{service: svc, logger: logger}, nil
}

// ReadText returns the concatenated text runs of the document body.
func (g *DocsGateway) ReadText(ctx context.Context, documentID string) (string, error) {
	doc, err := g.service.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	var sb strings.Builder
	if doc.Body == nil {
		return "", nil
	}
	for _, el := range doc.Body.Content {
		if el.Paragraph == nil {
			continue
		}
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				sb.WriteString(pe.TextRun.Content)
			}
		}
	}
	return sb.String(), nil
}

// ReplaceText deletes the whole body and inserts text in its place.
func (g *DocsGateway) ReplaceText(ctx context.Context, documentID, text string) error {
	doc, err := g.service.Documents.Get(documentID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	var end int64
	if doc.Body != nil && len(doc.Body.Content) > 0 {
		end = doc.Body.Content[len(doc.Body.Content)-1].EndIndex
	}

	var requests []*docs.Request
	// The trailing newline of the body segment cannot be deleted.
	if end-1 > 1 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: end - 1},
			},
		})
	}
	requests = append(requests, &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     text,
		},
	})

	_, err = g.service.Documents.BatchUpdate(documentID, &docs.BatchUpdateDocumentRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", documentID, err)
	}
	g.logger.Printf("Replaced content of document %s (%d chars).", documentID, len(text))
	return nil
}
