package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/magic"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/storage"
)

// Service stores uploaded bytes and registers them as documents.
type Service struct {
	repos  *repository.Repositories
	store  storage.Store
	logger *slog.Logger
}

func NewService(repos *repository.Repositories, store storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, store: store, logger: logger}
}

// Upload stores the content and creates an uploaded document. The same
// bytes uploaded twice to a case return the existing document.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Result, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if len(req.Content) == 0 {
		return nil, common.InvalidInputf("file %q is empty", req.Filename)
	}
	if len(req.Content) > MaxFileSize {
		return nil, common.InvalidInputf("file %q is larger than %d MB", req.Filename, MaxFileSize>>20)
	}
	mime := strings.ToLower(strings.TrimSpace(req.MimeType))
	if mime == "" {
		mime = magic.Sniff(req.Content)
	}
	if !magic.Supported(mime) {
		return nil, common.InvalidInputf("file type %q is not allowed; use PDF, JPG or PNG", mime)
	}
	if _, err := s.repos.Cases.Get(ctx, req.CaseID); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(req.Content)
	hash := hex.EncodeToString(sum[:])
	if existing, err := s.findByHash(ctx, req.CaseID, hash); err != nil || existing != nil {
		if existing != nil {
			s.logger.Info("ingest.upload.duplicate", "case_id", req.CaseID, "document_id", existing.ID, "sha256", hash)
			return &Result{Document: existing, Deduplicated: true}, nil
		}
		return nil, err
	}

	doc := &entity.Document{
		ID:               uuid.New(),
		CaseID:           req.CaseID,
		OriginalFilename: filepath.Base(req.Filename),
		MimeType:         mime,
		SizeBytes:        int64(len(req.Content)),
		SHA256:           hash,
		Status:           constants.DocumentUploaded,
	}
	doc.StoragePath = storage.DocumentKey(doc.CaseID, doc.ID, doc.OriginalFilename)
	if err := s.store.Put(ctx, doc.StoragePath, req.Content); err != nil {
		s.logger.Error("ingest.upload.store_failed", "case_id", req.CaseID, "path", doc.StoragePath, "error", err)
		return nil, fmt.Errorf("store %s: %w", doc.OriginalFilename, err)
	}

	// Check again inside the creating transaction; a concurrent upload of the
	// same bytes may have won.
	var dup *entity.Document
	err := s.repos.Client.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if dup, err = s.findByHash(ctx, req.CaseID, hash); err != nil || dup != nil {
			return err
		}
		return s.repos.Documents.Create(ctx, doc)
	})
	if err != nil || dup != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), doc.StoragePath); derr != nil {
			s.logger.Warn("ingest.upload.cleanup_failed", "path", doc.StoragePath, "error", derr)
		}
		if err != nil {
			return nil, err
		}
		return &Result{Document: dup, Deduplicated: true}, nil
	}

	s.logger.Info("ingest.upload.ok",
		"case_id", doc.CaseID,
		"document_id", doc.ID,
		"filename", doc.OriginalFilename,
		"mime", doc.MimeType,
		"bytes", doc.SizeBytes,
	)
	return &Result{Document: doc}, nil
}

func (s *Service) findByHash(ctx context.Context, caseID uuid.UUID, hash string) (*entity.Document, error) {
	d, err := s.repos.Documents.FindByHash(ctx, caseID, hash)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return d, err
}

// IngestPath uploads a local file, declaring the mime type from its extension.
func (s *Service) IngestPath(ctx context.Context, caseID uuid.UUID, path string) (*Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !allowedExt(abs, constants.AllowedExtensions) {
		return nil, common.InvalidInputf("unsupported or missing extension: %q", ext)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}
	res, err := s.Upload(ctx, UploadRequest{
		CaseID:   caseID,
		Filename: filepath.Base(abs),
		MimeType: constants.MimeForExt(ext),
		Content:  content,
	})
	if err != nil {
		return nil, err
	}
	res.SourcePath = abs
	return res, nil
}

// EnsureCase returns the case with the reference, creating it when missing.
func (s *Service) EnsureCase(ctx context.Context, reference string) (*entity.Case, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, common.InvalidInputf("case reference is required")
	}
	c, err := s.repos.Cases.GetByReference(ctx, reference)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	c = &entity.Case{ReferenceNo: reference}
	if err := s.repos.Cases.Create(ctx, c); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return s.repos.Cases.GetByReference(ctx, reference)
		}
		return nil, err
	}
	s.logger.Info("ingest.case.created", "case_id", c.ID, "reference_no", reference)
	return c, nil
}
