package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/rules"
)

// CaseStatusOf derives a case status from its documents. In-flight work wins
// over errors so a case is not reported blocked while it is still moving.
func CaseStatusOf(docs []*entity.Document) constants.CaseStatus {
	if len(docs) == 0 {
		return constants.CaseDraft
	}
	var uploaded, done, failed, inFlight int
	for _, d := range docs {
		switch d.Status {
		case constants.DocumentUploaded:
			uploaded++
		case constants.DocumentProcessing, constants.DocumentTextExtracted:
			inFlight++
		case constants.DocumentClassified, constants.DocumentExtracted:
			done++
		case constants.DocumentError:
			failed++
		}
	}
	switch {
	case inFlight > 0:
		return constants.CaseProcessing
	case failed > 0:
		return constants.CaseBlocked
	case done == len(docs):
		return constants.CaseReadyL1
	case uploaded == len(docs):
		return constants.CaseDraft
	default:
		return constants.CaseProcessing
	}
}

// RefreshCaseStatus recomputes and stores the case status.
func (p *Processor) RefreshCaseStatus(ctx context.Context, caseID uuid.UUID) (constants.CaseStatus, error) {
	docs, err := p.repos.Documents.ListByCase(ctx, caseID)
	if err != nil {
		return "", err
	}
	st := CaseStatusOf(docs)
	if err := p.repos.Cases.SetStatus(ctx, caseID, st); err != nil {
		return "", err
	}
	p.logger.Debug("processor.case.status", "case_id", caseID, "status", st, "documents", len(docs))
	return st, nil
}

type CaseOptions struct {
	// Extract runs field extraction on every document that classified to a type.
	Extract       bool
	Deterministic bool
}

type CaseRun struct {
	Documents []*entity.Document
	Status    constants.CaseStatus
	Report    *rules.Report
}

// ProcessCase processes every uploaded document of the case with bounded
// parallelism, then runs validation once all of them have settled.
func (p *Processor) ProcessCase(ctx context.Context, caseID uuid.UUID, opts CaseOptions) (*CaseRun, error) {
	if _, err := p.repos.Cases.Get(ctx, caseID); err != nil {
		return nil, err
	}
	docs, err := p.repos.Documents.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	var pending []*entity.Document
	for _, d := range docs {
		if d.Status == constants.DocumentUploaded {
			pending = append(pending, d)
		}
	}
	if len(pending) > 0 {
		if err := p.repos.Cases.SetStatus(ctx, caseID, constants.CaseProcessing); err != nil {
			return nil, err
		}
	}

	results := make([]*entity.Document, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.CaseParallelism)
	for i, d := range pending {
		g.Go(func() error {
			out, err := p.Process(gctx, d.ID)
			if err != nil {
				return fmt.Errorf("process %s: %w", d.ID, err)
			}
			if opts.Extract && out.Status == constants.DocumentClassified && out.HasDocType() {
				if out, err = p.ExtractFields(gctx, d.ID, opts.Deterministic); err != nil {
					return fmt.Errorf("extract %s: %w", d.ID, err)
				}
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_, _ = p.RefreshCaseStatus(context.WithoutCancel(ctx), caseID)
		return nil, err
	}

	st, err := p.RefreshCaseStatus(ctx, caseID)
	if err != nil {
		return nil, err
	}
	run := &CaseRun{Documents: results, Status: st}
	if p.validator != nil {
		if run.Report, err = p.validator.Run(ctx, caseID); err != nil {
			return nil, err
		}
	}
	p.logger.Info("processor.case.ok", "case_id", caseID, "processed", len(pending), "status", st)
	return run, nil
}
