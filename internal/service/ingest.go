// Package service wires the drafting core to storage, extraction and sessions
// for the HTTP and terminal front ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"legaldraft/internal/apperrors"
	"legaldraft/internal/domain"
	"legaldraft/internal/extract"
	"legaldraft/internal/loader"
	"legaldraft/internal/logger"
	"legaldraft/internal/reindex"
	"legaldraft/internal/store"
)

// IndexUpdater makes a committed template searchable.
type IndexUpdater interface {
	IngestIndexUpdate(ctx context.Context, t *domain.Template) error
}

// IndexAdmin rebuilds or prunes the similarity index.
type IndexAdmin interface {
	Rebuild(ctx context.Context, entries []domain.IndexEntry) error
	Remove(ctx context.Context, id int64) error
}

// UploadInput describes one uploaded document saved to a temporary path.
type UploadInput struct {
	Path         string
	Filename     string
	Jurisdiction string
}

// IngestResult reports the stored template and whether it is already searchable.
type IngestResult struct {
	Template *domain.Template
	Indexed  bool
	Warnings []string
}

// IngestOptions tune ingestion.
type IngestOptions struct {
	// StrictPlaceholders rejects bodies with placeholders that no variable declares.
	StrictPlaceholders bool
}

// Ingestor turns uploaded documents into stored, indexed templates.
type Ingestor struct {
	store     store.TemplateStore
	extractor extract.Extractor
	updater   IndexUpdater
	index     IndexAdmin
	reindexer reindex.Reindexer
	opts      IngestOptions
}

func NewIngestor(st store.TemplateStore, ex extract.Extractor, updater IndexUpdater, ix IndexAdmin, rx reindex.Reindexer, opts IngestOptions) *Ingestor {
	return &Ingestor{store: st, extractor: ex, updater: updater, index: ix, reindexer: rx, opts: opts}
}

// IngestDocument loads, extracts, stores and indexes one document.
// The store write commits before the index update; an index failure leaves the
// template stored and schedules a retry.
func (s *Ingestor) IngestDocument(ctx context.Context, in UploadInput) (*IngestResult, error) {
	name := in.Filename
	if name == "" {
		name = in.Path
	}
	if !loader.Supported(name) {
		return nil, apperrors.BadRequest(apperrors.CodeUnsupportedFileType,
			fmt.Sprintf("unsupported file type %q: use .pdf, .docx, .txt or .md", loader.Ext(name)))
	}
	doc, err := loader.Load(in.Path)
	if err != nil {
		if errors.Is(err, loader.ErrEmpty) {
			return nil, apperrors.InvalidRequest("document contains no extractable text")
		}
		if errors.Is(err, loader.ErrUnsupported) {
			return nil, apperrors.BadRequest(apperrors.CodeUnsupportedFileType, err.Error())
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidRequest, "could not read document", http.StatusBadRequest)
	}

	dt, err := s.extractor.Extract(ctx, doc.Content)
	if err != nil {
		logger.Warn("Template extraction failed",
			zap.String("extractor", s.extractor.Name()),
			zap.String("file", name),
			zap.Error(err),
		)
		return nil, apperrors.ExtractionFailed(err)
	}

	t := extract.ToDomain(dt, strings.TrimPrefix(loader.Ext(name), "."), strings.TrimSpace(in.Jurisdiction))
	var warnings []string
	if undeclared := extract.UndeclaredPlaceholders(t); len(undeclared) > 0 {
		if s.opts.StrictPlaceholders {
			return nil, apperrors.InvalidRequest(fmt.Sprintf("template body uses undeclared placeholders: %s", strings.Join(undeclared, ", ")))
		}
		for _, k := range undeclared {
			warnings = append(warnings, fmt.Sprintf("placeholder {{%s}} has no variable definition and will stay unfilled", k))
		}
	}

	if err := s.store.Save(ctx, t); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	logger.Info("Template stored",
		zap.Int64("template_id", t.ID),
		zap.String("title", t.Title),
		zap.Int("variables", len(t.Variables)),
	)

	res := &IngestResult{Template: t, Indexed: true, Warnings: warnings}
	if err := s.updater.IngestIndexUpdate(ctx, t); err != nil {
		res.Indexed = false
		logger.Error("Index update failed after store commit",
			zap.Int64("template_id", t.ID),
			zap.Error(err),
		)
		if s.reindexer != nil {
			if err := s.reindexer.Schedule(ctx, t.ID); err != nil {
				logger.Error("Could not schedule reindex", zap.Int64("template_id", t.ID), zap.Error(err))
			}
		}
	}
	return res, nil
}

// RebuildIndex replaces the index content with every stored template.
func (s *Ingestor) RebuildIndex(ctx context.Context) (int, error) {
	templates, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	entries := make([]domain.IndexEntry, len(templates))
	for i, t := range templates {
		entries[i] = domain.IndexEntry{TemplateID: t.ID, Text: t.Projection()}
	}
	if err := s.index.Rebuild(ctx, entries); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	return len(entries), nil
}

// DeleteTemplate removes the template from the store, then from the index.
func (s *Ingestor) DeleteTemplate(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.TemplateNotFound()
		}
		return apperrors.StoreUnavailable(err)
	}
	if err := s.index.Remove(ctx, id); err != nil {
		// a stale entry resolves to NotFound at draft time
		logger.Warn("Index removal failed", zap.Int64("template_id", id), zap.Error(err))
	}
	return nil
}
