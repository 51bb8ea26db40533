package domain

// SyncTarget is resolved during a single document sync run and discarded afterwards.
type SyncTarget struct {
	ReportFilePath     string
	PeriodLabel        string
	AuthorName         string
	ExternalDocumentID string
}

// MailMessage is one inbox message with its decoded bodies.
type MailMessage struct {
	ID      string
	Subject string
	Text    string
	HTML    string
}
