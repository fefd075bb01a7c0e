package service

import (
	"context"
	"fmt"

	"land-review/internal/models"
	"land-review/internal/permission"
)

const maxAuditPageSize = 500

// ListAudit returns a project's audit trail, newest first
func (s *ReviewService) ListAudit(ctx context.Context, actor models.Actor, projectID string, limit, offset int) ([]models.AuditEntry, error) {
	if err := permission.CanViewAudit(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var entries []models.AuditEntry
	err := s.run(ctx, actor, func(o *op) error {
		var err error
		entries, err = o.tx.ListAuditEntries(o.ctx, projectID, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to get audit entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
