package memory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
)

// TrackProgress upserts a milestone keyed by (project, milestone). Status
// always replaces; notes and blockers replace only when non-empty, so a
// status-only update preserves earlier detail. Progress has no vector
// mirror.
func (c *Coordinator) TrackProgress(ctx context.Context, in TrackProgressInput) (*TrackProgressResult, error) {
	if in.Milestone == "" {
		return nil, fmt.Errorf("%w: milestone is required", ErrValidation)
	}
	status := storage.Status(in.Status)
	if !storage.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}

	project, err := c.resolver.resolve(ctx, in.Project)
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	progress, err := c.store.UpsertProgress(ctx, &storage.Progress{
		ProjectID: project.ID,
		Milestone: in.Milestone,
		Status:    status,
		Notes:     in.Notes,
		Blockers:  in.Blockers,
	})
	if err != nil {
		return nil, fmt.Errorf("upserting progress: %w", err)
	}

	c.publishPersisted(ctx, project.Name, CategoryProgress, progress.ID, "")

	c.logger.Debug("tracked progress",
		zap.String("project", project.Name),
		zap.String("milestone", in.Milestone),
		zap.String("status", in.Status),
	)

	return &TrackProgressResult{
		ID:        progress.ID,
		Status:    string(progress.Status),
		UpdatedAt: progress.UpdatedAt,
	}, nil
}
