package docsync

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/naka-gawa/weekly-report/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const label = "[Fill Weekly Report] 18 October 2026 - 24 October 2026"

type mockMail struct {
	mock.Mock
}

func (m *mockMail) SearchMessages(ctx context.Context, query string) ([]domain.MailMessage, error) {
	args := m.Called(ctx, query)
	msgs, _ := args.Get(0).([]domain.MailMessage)
	return msgs, args.Error(1)
}

type fakeDocs struct {
	current  string
	readErr  error
	written  map[string]string
	writeErr error
}

func (f *fakeDocs) ReadText(ctx context.Context, documentID string) (string, error) {
	return f.current, f.readErr
}

func (f *fakeDocs) ReplaceText(ctx context.Context, documentID, text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.written == nil {
		f.written = map[string]string{}
	}
	f.written[documentID] = text
	return nil
}

type fakeArchive struct {
	saved []history.Snapshot
	err   error
}

func (f *fakeArchive) Save(ctx context.Context, s history.Snapshot) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, s)
	return int64(len(f.saved)), nil
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func writeArtifact(t *testing.T, dir, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func message(id, author, docID string) domain.MailMessage {
	return domain.MailMessage{
		ID:      id,
		Subject: label,
		Text:    "Hi " + author,
		HTML:    `<p>Hi ` + author + `</p><a href="https://docs.google.com/document/d/` + docID + `/edit?usp=sharing">Open Weekly Report</a>`,
	}
}

func TestCorrelator_Sync(t *testing.T) {
	dir := t.TempDir()
	old := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	writeArtifact(t, dir, "Weekly_Report_2026-10-12_to_2026-10-16.md", "# [Weekly Report: Jane] old", old)
	latest := writeArtifact(t, dir, "Weekly_Report_2026-10-19_to_2026-10-23.md", "# [Weekly Report: Jane] October 19-23, 2026\n\nbody", old.Add(7*24*time.Hour))

	mail := new(mockMail)
	mail.On("SearchMessages", mock.Anything, `from:agent@example.com subject:"`+label+`"`).
		Return([]domain.MailMessage{message("m1", "John", "docJohn"), message("m2", "jane", "docJane")}, nil)
	docs := &fakeDocs{current: "previous text"}
	archive := &fakeArchive{}

	result, err := NewCorrelator(mail, docs, archive, "agent@example.com", testLogger()).Sync(context.Background(), dir, label)
	require.NoError(t, err)
	mail.AssertExpectations(t)

	assert.Equal(t, Done, result.State)
	assert.Equal(t, []State{Idle, LocatingArtifact, SearchingInbox, ExtractingID, PushingContent, Done}, result.Trail)
	assert.Equal(t, domain.SyncTarget{
		ReportFilePath:     latest,
		PeriodLabel:        label,
		AuthorName:         "Jane",
		ExternalDocumentID: "docJane",
	}, result.Target)
	assert.Equal(t, "# [Weekly Report: Jane] October 19-23, 2026\n\nbody", docs.written["docJane"])
	require.Len(t, archive.saved, 1)
	assert.Equal(t, history.Snapshot{DocumentID: "docJane", PeriodLabel: label, Content: "previous text"}, archive.saved[0])
	assert.Equal(t, int64(1), result.SnapshotID)
}

func TestCorrelator_Sync_Failures(t *testing.T) {
	artifactDir := func(t *testing.T) string {
		dir := t.TempDir()
		writeArtifact(t, dir, "Weekly_Report_2026-10-19_to_2026-10-23.md", "# [Weekly Report: Jane] October 19-23, 2026", time.Now())
		return dir
	}

	testCases := []struct {
		name        string
		dir         func(t *testing.T) string
		messages    []domain.MailMessage
		searchErr   error
		archiveErr  error
		failedIn    State
		expectedErr func(t *testing.T, err error)
	}{
		{
			name:     "missing output directory",
			dir:      func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
			failedIn: LocatingArtifact,
			expectedErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrNoArtifactFound)
			},
		},
		{
			name: "directory without report files",
			dir: func(t *testing.T) string {
				dir := t.TempDir()
				writeArtifact(t, dir, "notes.md", "x", time.Now())
				return dir
			},
			failedIn: LocatingArtifact,
			expectedErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrNoArtifactFound)
			},
		},
		{
			name:     "zero candidates",
			dir:      artifactDir,
			failedIn: SearchingInbox,
			expectedErr: func(t *testing.T, err error) {
				var ref *domain.AmbiguousOrMissingReferenceError
				require.ErrorAs(t, err, &ref)
				assert.Equal(t, 0, ref.Candidates)
			},
		},
		{
			name:     "other authors only",
			dir:      artifactDir,
			messages: []domain.MailMessage{message("m1", "John", "d1")},
			failedIn: SearchingInbox,
			expectedErr: func(t *testing.T, err error) {
				var ref *domain.AmbiguousOrMissingReferenceError
				assert.ErrorAs(t, err, &ref)
			},
		},
		{
			name:     "several candidates",
			dir:      artifactDir,
			messages: []domain.MailMessage{message("m1", "Jane", "d1"), message("m2", "Jane", "d2")},
			failedIn: SearchingInbox,
			expectedErr: func(t *testing.T, err error) {
				var ref *domain.AmbiguousOrMissingReferenceError
				require.ErrorAs(t, err, &ref)
				assert.Equal(t, 2, ref.Candidates)
			},
		},
		{
			name:      "search error",
			dir:       artifactDir,
			searchErr: errors.New("gmail down"),
			failedIn:  SearchingInbox,
			expectedErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "gmail down")
			},
		},
		{
			name:     "message without link",
			dir:      artifactDir,
			messages: []domain.MailMessage{{ID: "m1", Text: "Jane, please fill the report"}},
			failedIn: ExtractingID,
			expectedErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, domain.ErrLinkNotFound)
			},
		},
		{
			name:       "archive failure aborts the push",
			dir:        artifactDir,
			messages:   []domain.MailMessage{message("m1", "Jane", "d1")},
			archiveErr: errors.New("disk full"),
			failedIn:   PushingContent,
			expectedErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "disk full")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mail := new(mockMail)
			mail.On("SearchMessages", mock.Anything, mock.Anything).Return(tc.messages, tc.searchErr)
			docs := &fakeDocs{}
			archive := &fakeArchive{err: tc.archiveErr}

			result, err := NewCorrelator(mail, docs, archive, "", testLogger()).Sync(context.Background(), tc.dir(t), label)
			require.Error(t, err)
			tc.expectedErr(t, err)

			assert.Equal(t, Failed, result.State)
			assert.Equal(t, err, result.Reason)
			require.GreaterOrEqual(t, len(result.Trail), 2)
			assert.Equal(t, tc.failedIn, result.Trail[len(result.Trail)-2])
			assert.Empty(t, docs.written, "no document write on failure")
		})
	}
}

func TestCorrelator_Sync_WithoutArchive(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "Weekly_Report_2026-10-19_to_2026-10-23.md", "no title line", time.Now())

	mail := new(mockMail)
	mail.On("SearchMessages", mock.Anything, `subject:"`+label+`"`).
		Return([]domain.MailMessage{message("m1", "", "d1")}, nil)
	docs := &fakeDocs{readErr: errors.New("must not be read")}

	result, err := NewCorrelator(mail, docs, nil, "", testLogger()).Sync(context.Background(), dir, label)
	require.NoError(t, err)
	assert.Empty(t, result.Target.AuthorName)
	assert.Equal(t, "no title line", docs.written["d1"])
}

func TestCorrelator_Sync_EmptyLabel(t *testing.T) {
	mail := new(mockMail)
	result, err := NewCorrelator(mail, &fakeDocs{}, nil, "", testLogger()).Sync(context.Background(), t.TempDir(), " ")
	assert.Error(t, err)
	assert.Equal(t, []State{Idle, Failed}, result.Trail)
	mail.AssertNotCalled(t, "SearchMessages", mock.Anything, mock.Anything)
}

func TestExtractDocumentID(t *testing.T) {
	testCases := []struct {
		name     string
		msg      domain.MailMessage
		expected string
	}{
		{
			name: "anchor wins over earlier generic link",
			msg: domain.MailMessage{HTML: `<a href="https://docs.google.com/document/d/other/edit">guide</a>
<a href="https://docs.google.com/document/d/abc-123_X/edit" target="_blank">Open Weekly Report</a>`},
			expected: "abc-123_X",
		},
		{
			name:     "generic link in plain text",
			msg:      domain.MailMessage{Text: "See https://docs.google.com/document/d/plain1/edit for details"},
			expected: "plain1",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ExtractDocumentID(tc.msg)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
		})
	}

	_, err := ExtractDocumentID(domain.MailMessage{Text: "https://docs.google.com/spreadsheets/d/x/edit"})
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestAuthorName(t *testing.T) {
	assert.Equal(t, "Jane Doe", AuthorName("# [Weekly Report:  Jane Doe ] October 19-23, 2026\nrest"))
	assert.Empty(t, AuthorName("# Weekly Report\n[Weekly Report: Later]"))
}

func TestLatestArtifact_TieBreaksByName(t *testing.T) {
	dir := t.TempDir()
	same := time.Date(2026, 10, 23, 9, 0, 0, 0, time.UTC)
	writeArtifact(t, dir, "Weekly_Report_2026-10-12_to_2026-10-16.md", "a", same)
	writeArtifact(t, dir, "Weekly_Report_2026-10-19_to_2026-10-23.md", "b", same)

	path, err := LatestArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, "Weekly_Report_2026-10-19_to_2026-10-23.md", filepath.Base(path))
}
