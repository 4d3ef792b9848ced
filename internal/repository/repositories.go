package repository

import "log/slog"

// Repositories bundles one repository per record type over a shared client.
type Repositories struct {
	Client    *Client
	Cases     CaseRepository
	Documents DocumentRepository
	Pages     PageRepository
	Fields    FieldRepository
	Results   ValidationResultRepository
	Checklist ChecklistRepository
}

func NewRepositories(client *Client, logger *slog.Logger) *Repositories {
	return &Repositories{
		Client:    client,
		Cases:     NewCaseRepository(client, logger),
		Documents: NewDocumentRepository(client, logger),
		Pages:     NewPageRepository(client, logger),
		Fields:    NewFieldRepository(client, logger),
		Results:   NewValidationResultRepository(client, logger),
		Checklist: NewChecklistRepository(client, logger),
	}
}
