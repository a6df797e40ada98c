package export

import (
	"context"
	"fmt"
	"sync"

	"go-reporting/internal/common/apperr"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/execution"
)

type ExportService interface {
	// Export renders the completed execution's snapshot in the requested
	// format. Re-exporting the same execution and format returns the exact
	// same bytes.
	Export(ctx context.Context, executionID string, format Format) (*Artifact, error)
}

type ExportServiceImpl struct {
	ExecutionService execution.ExecutionService
	AuditService     audit.AuditService

	mu        sync.Mutex
	artifacts map[string][]byte
}

func NewExportService(executionService execution.ExecutionService, auditService audit.AuditService) ExportService {
	return &ExportServiceImpl{
		ExecutionService: executionService,
		AuditService:     auditService,
		artifacts:        make(map[string][]byte),
	}
}

func (s *ExportServiceImpl) record(ctx context.Context, targetID string, opErr error) error {
	outcome := audit.OutcomeSuccess
	detail := ""
	if opErr != nil {
		detail = opErr.Error()
		if apperr.Is(opErr, apperr.KindAuthorization) {
			outcome = audit.OutcomeDenied
		} else {
			outcome = audit.OutcomeError
		}
	}
	if auditErr := s.AuditService.Record(ctx, audit.ActionExport, targetID, outcome, detail); auditErr != nil {
		return apperr.Execution("audit append failed", auditErr)
	}
	return opErr
}

func (s *ExportServiceImpl) Export(ctx context.Context, executionID string, format Format) (*Artifact, error) {
	// Format validation comes first: an unknown format never touches storage
	// and never produces a partial artifact.
	if !ValidFormat(format) {
		return nil, s.record(ctx, executionID, apperr.Validation("unsupported export format '%s'", format))
	}

	exec, err := s.ExecutionService.GetExecution(ctx, executionID)
	if err != nil {
		return nil, s.record(ctx, executionID, err)
	}

	if exec.Status != execution.StatusCompleted || exec.Snapshot == nil {
		reason := "has no exportable result"
		if exec.SnapshotExpired {
			reason = "result snapshot has expired"
		}
		return nil, s.record(ctx, executionID, apperr.NotFound("execution '%s' %s", executionID, reason))
	}

	data, err := s.render(executionID, format, exec.Snapshot)
	if err != nil {
		return nil, s.record(ctx, executionID, apperr.Export("rendering export failed", err))
	}
	if err := s.record(ctx, executionID, nil); err != nil {
		return nil, err
	}

	return &Artifact{
		Filename:    fmt.Sprintf("report_%s.%s", executionID, extension(format)),
		ContentType: contentType(format),
		Data:        data,
	}, nil
}

// maxCachedArtifacts bounds the artifact memo. Renders are deterministic
// (snapshots are immutable and the xlsx writer uses pinned doc properties),
// so eviction only costs a re-render, never changes the bytes.
const maxCachedArtifacts = 64

// render memoizes per execution and format so repeated exports of large
// snapshots skip the re-render.
func (s *ExportServiceImpl) render(executionID string, format Format, snap *execution.Snapshot) ([]byte, error) {
	key := executionID + ":" + string(format)

	s.mu.Lock()
	if data, ok := s.artifacts[key]; ok {
		s.mu.Unlock()
		return data, nil
	}
	s.mu.Unlock()

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = renderCSV(snap)
	case FormatXLSX:
		data, err = renderXLSX(snap)
	case FormatDocument:
		data, err = renderDocument(snap)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// Another renderer may have won the race; keep the first artifact.
	if existing, ok := s.artifacts[key]; ok {
		data = existing
	} else {
		if len(s.artifacts) >= maxCachedArtifacts {
			s.artifacts = make(map[string][]byte)
		}
		s.artifacts[key] = data
	}
	s.mu.Unlock()

	return data, nil
}

func extension(f Format) string {
	if f == FormatDocument {
		return "txt"
	}
	return string(f)
}

func contentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain; charset=utf-8"
	}
}
