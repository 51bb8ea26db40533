package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/naka-gawa/weekly-report/internal/render"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const emailStyle = `<style>
body { font-family: Arial, sans-serif; font-size: 14px; line-height: 1.5; color: #202124; }
h1, h2, h3 { color: #1a73e8; }
ul { padding-left: 20px; }
code { background: #f1f3f4; padding: 0 3px; border-radius: 3px; }
a { color: #1a73e8; }
</style>`

// DraftCreator stores a raw RFC 822 message as an email draft.
type DraftCreator interface {
	CreateDraft(ctx context.Context, raw []byte) (string, error)
}

// DraftRequest describes the email built from a rendered report.
type DraftRequest struct {
	Report        string
	Period        Period
	AuthorName    string
	EmailTemplate string
	To            []string
	CC            []string
}

// Drafter turns a rendered report into an HTML email draft.
type Drafter struct {
	mail     DraftCreator
	markdown goldmark.Markdown
	logger   *log.Logger
}

func NewDrafter(mail DraftCreator, logger *log.Logger) *Drafter {
	return &Drafter{
		mail:     mail,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

// Subject returns "[Weekly Report: <author>] <date range>".
func Subject(author string, p Period) string {
	return fmt.Sprintf("[Weekly Report: %s] %s", author, p.DateRange())
}

// Draft creates the draft and returns its ID.
func (d *Drafter) Draft(ctx context.Context, req DraftRequest) (string, error) {
	if len(req.To) == 0 {
		return "", fmt.Errorf("failed to create draft: no recipient configured")
	}
	raw, err := d.Compose(req)
	if err != nil {
		return "", err
	}
	id, err := d.mail.CreateDraft(ctx, raw)
	if err != nil {
		return "", err
	}
	d.logger.Printf("Usecase: draft %s created for %s", id, strings.Join(req.To, ", "))
	return id, nil
}

// Compose builds the MIME message without sending it anywhere.
func (d *Drafter) Compose(req DraftRequest) ([]byte, error) {
	body, err := render.String(req.EmailTemplate, map[string]string{
		"date_range": req.Period.DateRange(),
		"report":     req.Report,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}
	var html bytes.Buffer
	if err := d.markdown.Convert([]byte(body), &html); err != nil {
		return nil, fmt.Errorf("failed to convert report to HTML: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(req.To, ", "))
	if len(req.CC) > 0 {
		fmt.Fprintf(&msg, "Cc: %s\r\n", strings.Join(req.CC, ", "))
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", Subject(req.AuthorName, req.Period)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	fmt.Fprintf(&msg, "<html><head>%s</head><body>\n%s</body></html>\r\n", emailStyle, html.String())
	return msg.Bytes(), nil
}

// PeriodFromArtifact recovers the period from a "Weekly_Report_<start>_to_<end>.md" file name.
func PeriodFromArtifact(path string, loc *time.Location) (Period, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".md")
	start, _, ok := strings.Cut(strings.TrimPrefix(name, "Weekly_Report_"), "_to_")
	if !ok {
		return Period{}, fmt.Errorf("failed to read period from %s", filepath.Base(path))
	}
	return ParsePeriod(start, loc)
}
