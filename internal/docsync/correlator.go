// Package docsync pushes the latest report artifact into the shared document
// linked from the weekly request email.
package docsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/naka-gawa/weekly-report/internal/history"
)

// State is a step of a sync run.
type State int

const (
	Idle State = iota
	LocatingArtifact
	SearchingInbox
	ExtractingID
	PushingContent
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case LocatingArtifact:
		return "LocatingArtifact"
	case SearchingInbox:
		return "SearchingInbox"
	case ExtractingID:
		return "ExtractingId"
	case PushingContent:
		return "PushingContent"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SyncResult describes how far a sync run got.
type SyncResult struct {
	Trail  []State
	State  State
	Target domain.SyncTarget
	// Reason is set when State is Failed.
	Reason error
	// SnapshotID is the archive id of the content replaced by the push, or zero.
	SnapshotID int64
}

func (r *SyncResult) enter(s State) {
	r.Trail = append(r.Trail, s)
	r.State = s
}

// MailSearcher finds inbox messages by query.
type MailSearcher interface {
	SearchMessages(ctx context.Context, query string) ([]domain.MailMessage, error)
}

// Documents reads and overwrites the shared document.
type Documents interface {
	ReadText(ctx context.Context, documentID string) (string, error)
	ReplaceText(ctx context.Context, documentID, text string) error
}

// Archiver keeps the content of a document before it is overwritten.
type Archiver interface {
	Save(ctx context.Context, s history.Snapshot) (int64, error)
}

// Correlator resolves the document for a reporting period and overwrites it.
type Correlator struct {
	mail    MailSearcher
	docs    Documents
	archive Archiver
	sender  string
	logger  *log.Logger
}

// NewCorrelator creates a Correlator. archive may be nil, in which case the
// previous document content is not kept. sender restricts the inbox search when set.
func NewCorrelator(mail MailSearcher, docs Documents, archive Archiver, sender string, logger *log.Logger) *Correlator {
	return &Correlator{mail: mail, docs: docs, archive: archive, sender: sender, logger: logger}
}

// Sync runs the state machine once. It never retries; the first failure is terminal
// and is returned both as the error and as SyncResult.Reason.
func (c *Correlator) Sync(ctx context.Context, outputDirectory, periodLabel string) (SyncResult, error) {
	var run SyncResult
	run.enter(Idle)
	fail := func(err error) (SyncResult, error) {
		c.logger.Printf("Sync failed in %s: %v", run.State, err)
		run.Reason = err
		run.enter(Failed)
		return run, err
	}
	if strings.TrimSpace(periodLabel) == "" {
		return fail(errors.New("period label is empty"))
	}
	run.Target.PeriodLabel = periodLabel

	run.enter(LocatingArtifact)
	path, err := LatestArtifact(outputDirectory)
	if err != nil {
		return fail(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fail(fmt.Errorf("failed to read artifact %s: %w", path, err))
	}
	content := string(raw)
	run.Target.ReportFilePath = path
	run.Target.AuthorName = AuthorName(content)
	c.logger.Printf("Using artifact %s (author %q)", path, run.Target.AuthorName)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	run.enter(SearchingInbox)
	msg, err := c.findMessage(ctx, periodLabel, run.Target.AuthorName)
	if err != nil {
		return fail(err)
	}

	run.enter(ExtractingID)
	id, err := ExtractDocumentID(msg)
	if err != nil {
		return fail(fmt.Errorf("message %s: %w", msg.ID, err))
	}
	run.Target.ExternalDocumentID = id

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	run.enter(PushingContent)
	if c.archive != nil {
		current, err := c.docs.ReadText(ctx, id)
		if err != nil {
			return fail(fmt.Errorf("failed to read document before overwrite: %w", err))
		}
		run.SnapshotID, err = c.archive.Save(ctx, history.Snapshot{DocumentID: id, PeriodLabel: periodLabel, Content: current})
		if err != nil {
			return fail(fmt.Errorf("failed to archive document before overwrite: %w", err))
		}
		c.logger.Printf("Archived previous content of %s as snapshot %d", id, run.SnapshotID)
	}
	if err := c.docs.ReplaceText(ctx, id, content); err != nil {
		return fail(err)
	}

	run.enter(Done)
	return run, nil
}

func (c *Correlator) findMessage(ctx context.Context, label, author string) (domain.MailMessage, error) {
	query := fmt.Sprintf("subject:%q", label)
	if c.sender != "" {
		query = fmt.Sprintf("from:%s %s", c.sender, query)
	}
	messages, err := c.mail.SearchMessages(ctx, query)
	if err != nil {
		return domain.MailMessage{}, fmt.Errorf("failed to search inbox: %w", err)
	}

	candidates := messages
	if author != "" {
		candidates = nil
		needle := strings.ToLower(author)
		for _, m := range messages {
			if strings.Contains(strings.ToLower(m.Text+m.HTML), needle) {
				candidates = append(candidates, m)
			}
		}
	}
	c.logger.Printf("Inbox search returned %d message(s), %d candidate(s)", len(messages), len(candidates))
	if len(candidates) != 1 {
		return domain.MailMessage{}, &domain.AmbiguousOrMissingReferenceError{Label: label, Candidates: len(candidates)}
	}
	return candidates[0], nil
}

// LatestArtifact returns the most recently modified report file in dir.
func LatestArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w in %s", domain.ErrNoArtifactFound, dir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read output directory %s: %w", dir, err)
	}

	var latest string
	var latestInfo os.FileInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "Weekly_Report_") || !strings.HasSuffix(name, ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", name, err)
		}
		if latestInfo == nil || info.ModTime().After(latestInfo.ModTime()) ||
			(info.ModTime().Equal(latestInfo.ModTime()) && name > latestInfo.Name()) {
			latest, latestInfo = name, info
		}
	}
	if latestInfo == nil {
		return "", fmt.Errorf("%w in %s", domain.ErrNoArtifactFound, dir)
	}
	return filepath.Join(dir, latest), nil
}

var authorPattern = regexp.MustCompile(`\[Weekly Report:\s*([^\]]+)\]`)

// AuthorName reads the author from the artifact title line, or returns "".
func AuthorName(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	if m := authorPattern.FindStringSubmatch(first); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

var (
	anchorLinkPattern  = regexp.MustCompile(`href="https://docs\.google\.com/document/d/([\w-]+)/edit[^"]*"[^>]*>\s*Open Weekly Report\s*<`)
	genericLinkPattern = regexp.MustCompile(`https://docs\.google\.com/document/d/([\w-]+)/edit`)
)

// ExtractDocumentID pulls the document id out of a message. The "Open Weekly Report"
// anchor wins over any other document link.
func ExtractDocumentID(msg domain.MailMessage) (string, error) {
	for _, pattern := range []*regexp.Regexp{anchorLinkPattern, genericLinkPattern} {
		for _, body := range []string{msg.HTML, msg.Text} {
			if m := pattern.FindStringSubmatch(body); m != nil {
				return m[1], nil
			}
		}
	}
	return "", domain.ErrLinkNotFound
}
