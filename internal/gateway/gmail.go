package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/naka-gawa/weekly-report/internal/domain"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	formsSender         = "forms-receipts-noreply@google.com"
	formsSubjectPrefix  = "Response submitted:"
	maxSearchCandidates = 10
)

// MailGateway is the subset of Gmail the pipeline uses.
type MailGateway interface {
	FetchFormSubmissions(ctx context.Context, from, to time.Time) ([]domain.RawActivityRecord, error)
	SearchMessages(ctx context.Context, query string) ([]domain.MailMessage, error)
	CreateDraft(ctx context.Context, raw []byte) (string, error)
}

// GmailGateway talks to the Gmail API on behalf of the authorized user.
type GmailGateway struct {
	service *gmail.Service
	loc     *time.Location
	logger  *log.Logger
}

var _ MailGateway = &GmailGateway{}

func NewGmailGateway(ctx context.Context, loc *time.Location, logger *log.Logger, opts ...option.ClientOption) (*GmailGateway, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailGateway{service: svc, loc: loc, logger: logger}, nil
}

// FetchFormSubmissions returns one record per Google Forms receipt received in [from, to), oldest first.
func (g *GmailGateway) FetchFormSubmissions(ctx context.Context, from, to time.Time) ([]domain.RawActivityRecord, error) {
	g.logger.Println("Fetching form submissions...")
	query := fmt.Sprintf("from:%s after:%s before:%s", formsSender, from.Format("2006/01/02"), to.Format("2006/01/02"))

	var ids []string
	err := g.service.Users.Messages.List("me").Q(query).Pages(ctx, func(page *gmail.ListMessagesResponse) error {
		for _, m := range page.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list form receipts: %w", err)
	}

	var records []domain.RawActivityRecord
	for _, id := range ids {
		msg, err := g.service.Users.Messages.Get("me", id).Format("metadata").MetadataHeaders("Subject").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get form receipt %s: %w", id, err)
		}
		received := time.UnixMilli(msg.InternalDate).In(g.loc)
		if received.Before(from) || !received.Before(to) {
			continue
		}
		subject := header(msg.Payload, "Subject")
		records = append(records, domain.RawActivityRecord{
			Source:     domain.SourceForm,
			Title:      strings.TrimSpace(strings.TrimPrefix(subject, formsSubjectPrefix)),
			Start:      received,
			ExternalID: msg.Id,
		})
	}
	slices.SortStableFunc(records, func(a, b domain.RawActivityRecord) int {
		return a.Start.Compare(b.Start)
	})
	g.logger.Printf("Completed fetching %d form submissions.", len(records))
	return records, nil
}

// SearchMessages returns up to ten messages matching a Gmail search query, with decoded bodies.
func (g *GmailGateway) SearchMessages(ctx context.Context, query string) ([]domain.MailMessage, error) {
	g.logger.Printf("Searching inbox for %s", query)
	list, err := g.service.Users.Messages.List("me").Q(query).MaxResults(maxSearchCandidates).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	messages := make([]domain.MailMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg, err := g.service.Users.Messages.Get("me", m.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", m.Id, err)
		}
		var text, html strings.Builder
		collectBodies(msg.Payload, &text, &html)
		messages = append(messages, domain.MailMessage{
			ID:      msg.Id,
			Subject: header(msg.Payload, "Subject"),
			Text:    text.String(),
			HTML:    html.String(),
		})
	}
	return messages, nil
}

// CreateDraft stores an RFC 822 message as a draft and returns the draft ID.
func (g *GmailGateway) CreateDraft(ctx context.Context, raw []byte) (string, error) {
	draft, err := g.service.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}
	return draft.Id, nil
}

func header(p *gmail.MessagePart, name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func collectBodies(p *gmail.MessagePart, text, html *strings.Builder) {
	if p == nil {
		return
	}
	if p.Body != nil && p.Body.Data != "" {
		switch p.MimeType {
		case "text/plain":
			text.WriteString(decodeBody(p.Body.Data))
		case "text/html":
			html.WriteString(decodeBody(p.Body.Data))
		}
	}
	for _, part := range p.Parts {
		collectBodies(part, text, html)
	}
}

// decodeBody accepts padded and unpadded base64url.
func decodeBody(data string) string {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(b)
}
