package repository

import (
	"context"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

const tablePages = "document_pages"

var pageColumns = []string{"id", "document_id", "page_number", "extracted_text", "extraction_method", "char_count"}

type PageRepository interface {
	// Replace deletes every page of the document and writes pages in their place.
	Replace(ctx context.Context, documentID uuid.UUID, pages []entity.PageText) ([]*entity.Page, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Page, error)
}

type pageRepository struct {
	client *Client
	logger *slog.Logger
}

func NewPageRepository(client *Client, logger *slog.Logger) PageRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &pageRepository{
		client: client,
		logger: logger,
	}
}

func (r *pageRepository) Replace(ctx context.Context, documentID uuid.UUID, pages []entity.PageText) ([]*entity.Page, error) {
	out := make([]*entity.Page, 0, len(pages))
	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		if err := r.DeleteByDocument(ctx, documentID); err != nil {
			return err
		}
		if len(pages) == 0 {
			return nil
		}
		ins := r.client.builder().Insert(tablePages).Columns(pageColumns...)
		for _, p := range pages {
			row := &entity.Page{
				ID:         uuid.New(),
				DocumentID: documentID,
				PageNumber: p.PageNumber,
				Text:       p.Text,
				Method:     p.Method,
				CharCount:  p.CharCount,
			}
			ins.Values(row.ID, row.DocumentID, row.PageNumber, row.Text, string(row.Method), row.CharCount)
			out = append(out, row)
		}
		q, args := ins.Query()
		_, err := r.client.exec(ctx, q, args)
		return err
	})
	if err != nil {
		r.logger.Error("failed to replace pages", "document_id", documentID, "error", err)
		return nil, dbError("replace pages", err)
	}
	return out, nil
}

func (r *pageRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	q, args := r.client.builder().Delete(tablePages).Where(entsql.EQ("document_id", documentID)).Query()
	if _, err := r.client.exec(ctx, q, args); err != nil {
		return dbError("delete pages", err)
	}
	return nil
}

func (r *pageRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.Page, error) {
	b := r.client.builder()
	q, args := b.Select(pageColumns...).
		From(b.Table(tablePages)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy(entsql.Asc("page_number")).
		Query()

	var out []*entity.Page
	err := r.client.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			p      entity.Page
			method string
		)
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text, &method, &p.CharCount); err != nil {
			return err
		}
		p.Method = constants.ExtractionMethod(method)
		out = append(out, &p)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list pages", "document_id", documentID, "error", err)
		return nil, dbError("list pages", err)
	}
	return out, nil
}
