package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage"
)

// clampThreshold applies the default and epsilon rules. A zero threshold is
// treated as unset; anything at or below the epsilon is raised to it so
// entries with no meaningful similarity are never matched.
func (c *Coordinator) clampThreshold(t float64) float64 {
	if t == 0 {
		return c.defaults.SimilarityThreshold
	}
	if t < minSimilarityThreshold {
		return minSimilarityThreshold
	}
	return t
}

// SemanticSearch embeds the query, retrieves nearest neighbors from the
// category's vector index, and filters by project and threshold. Project
// and threshold filtering happen after retrieval, so the index is queried
// for more hits than the caller asked for. Results are similarity
// descending; a hit exactly at the threshold is included.
//
// No hydration from the structured store happens here; callers needing
// structured fields follow up by record id.
func (c *Coordinator) SemanticSearch(ctx context.Context, in SearchInput) ([]SearchHit, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if in.Category != CategoryDecisions && in.Category != CategoryCodePatterns {
		return nil, fmt.Errorf("%w: unknown search category %q", ErrValidation, in.Category)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = c.defaults.SearchLimit
	}
	threshold := c.clampThreshold(in.Threshold)

	embedding, err := c.embedder.Embed(ctx, in.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := c.vector.Query(ctx, in.Category, embedding, limit*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("querying vector index: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		if float64(r.Similarity) < threshold {
			continue
		}
		if in.Project != "" && r.Project != in.Project {
			continue
		}

		hit := SearchHit{
			EmbeddingRef: r.ID,
			Project:      r.Project,
			Content:      r.Content,
			Similarity:   r.Similarity,
			Metadata:     r.Metadata,
		}
		if r.Metadata != nil {
			hit.RecordID = r.Metadata["record_id"]
		}
		hits = append(hits, hit)

		if len(hits) == limit {
			break
		}
	}

	c.logger.Debug("semantic search",
		zap.String("category", in.Category),
		zap.String("project", in.Project),
		zap.Float64("threshold", threshold),
		zap.Int("hits", len(hits)),
	)

	return hits, nil
}

// IdentifyDuplicates finds stored code patterns semantically similar to a
// feature descriptor, across all projects. An empty descriptor is rejected
// before any store access.
func (c *Coordinator) IdentifyDuplicates(ctx context.Context, featureDescriptor string, threshold float64) ([]SearchHit, error) {
	if strings.TrimSpace(featureDescriptor) == "" {
		return nil, fmt.Errorf("%w: feature descriptor is required", ErrValidation)
	}

	return c.SemanticSearch(ctx, SearchInput{
		Query:     featureDescriptor,
		Category:  CategoryCodePatterns,
		Threshold: threshold,
	})
}

// GetProjectMemory lists a project's records for a category. Without a
// query the listing is purely recency ordered. With a query, semantic
// matches are hydrated from the structured store and merged ahead of the
// recency set, de-duplicated by record id with semantic entries taking
// precedence.
func (c *Coordinator) GetProjectMemory(ctx context.Context, in ProjectMemoryInput) ([]MemoryEntry, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = c.defaults.SearchLimit
	}

	project, err := c.resolver.resolve(ctx, in.Project)
	if err != nil {
		return nil, fmt.Errorf("resolving project: %w", err)
	}

	switch in.Category {
	case CategoryDecisions, CategoryCodePatterns, CategoryProgress:
	default:
		return nil, fmt.Errorf("%w: unknown memory category %q", ErrValidation, in.Category)
	}

	recent, err := c.listRecent(ctx, in.Category, project.ID, limit)
	if err != nil {
		return nil, err
	}

	// Progress has no vector mirror, so a query cannot refine it.
	if in.Query == "" || in.Category == CategoryProgress {
		if len(recent) > limit {
			recent = recent[:limit]
		}
		return recent, nil
	}

	hits, err := c.SemanticSearch(ctx, SearchInput{
		Query:    in.Query,
		Category: in.Category,
		Project:  project.Name,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	semantic, err := c.hydrateHits(ctx, in.Category, hits)
	if err != nil {
		return nil, err
	}

	// Semantic matches lead, similarity descending; recency entries fill
	// the remainder. De-duplicate by record id with semantic precedence.
	sort.SliceStable(semantic, func(i, j int) bool {
		return semantic[i].Similarity > semantic[j].Similarity
	})

	seen := make(map[string]struct{}, len(semantic))
	merged := make([]MemoryEntry, 0, limit)
	for _, e := range semantic {
		if _, ok := seen[e.RecordID]; ok {
			continue
		}
		seen[e.RecordID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range recent {
		if _, ok := seen[e.RecordID]; ok {
			continue
		}
		seen[e.RecordID] = struct{}{}
		merged = append(merged, e)
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// listRecent returns the category's structured rows in reverse
// chronological order.
func (c *Coordinator) listRecent(ctx context.Context, category, projectID string, limit int) ([]MemoryEntry, error) {
	switch category {
	case CategoryDecisions:
		decisions, err := c.store.ListDecisions(ctx, projectID, limit)
		if err != nil {
			return nil, fmt.Errorf("listing decisions: %w", err)
		}
		entries := make([]MemoryEntry, 0, len(decisions))
		for _, d := range decisions {
			entries = append(entries, decisionEntry(d, 0, false))
		}
		return entries, nil

	case CategoryCodePatterns:
		patterns, err := c.store.ListPatterns(ctx, projectID, limit)
		if err != nil {
			return nil, fmt.Errorf("listing patterns: %w", err)
		}
		entries := make([]MemoryEntry, 0, len(patterns))
		for _, p := range patterns {
			entries = append(entries, patternEntry(p, 0, false))
		}
		return entries, nil

	case CategoryProgress:
		progress, err := c.store.ListProgress(ctx, projectID, limit)
		if err != nil {
			return nil, fmt.Errorf("listing progress: %w", err)
		}
		entries := make([]MemoryEntry, 0, len(progress))
		for _, p := range progress {
			entries = append(entries, MemoryEntry{
				RecordID:  p.ID,
				Category:  CategoryProgress,
				Content:   p.Milestone,
				Status:    string(p.Status),
				Timestamp: p.UpdatedAt,
			})
		}
		return entries, nil
	}

	return nil, fmt.Errorf("%w: unknown memory category %q", ErrValidation, category)
}

// hydrateHits loads the structured rows behind a set of search hits and
// attaches each hit's similarity.
func (c *Coordinator) hydrateHits(ctx context.Context, category string, hits []SearchHit) ([]MemoryEntry, error) {
	ids := make([]string, 0, len(hits))
	similarity := make(map[string]float32, len(hits))
	for _, h := range hits {
		if h.RecordID == "" {
			continue
		}
		ids = append(ids, h.RecordID)
		similarity[h.RecordID] = h.Similarity
	}
	if len(ids) == 0 {
		return nil, nil
	}

	switch category {
	case CategoryDecisions:
		decisions, err := c.store.GetDecisionsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("hydrating decisions: %w", err)
		}
		entries := make([]MemoryEntry, 0, len(decisions))
		for _, d := range decisions {
			entries = append(entries, decisionEntry(d, similarity[d.ID], true))
		}
		return entries, nil

	case CategoryCodePatterns:
		patterns, err := c.store.GetPatternsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("hydrating patterns: %w", err)
		}
		entries := make([]MemoryEntry, 0, len(patterns))
		for _, p := range patterns {
			entries = append(entries, patternEntry(p, similarity[p.ID], true))
		}
		return entries, nil
	}

	return nil, nil
}

func decisionEntry(d *storage.Decision, similarity float32, semantic bool) MemoryEntry {
	return MemoryEntry{
		RecordID:   d.ID,
		Category:   CategoryDecisions,
		Content:    d.Decision,
		Similarity: similarity,
		Semantic:   semantic,
		Timestamp:  d.Timestamp,
	}
}

func patternEntry(p *storage.CodePattern, similarity float32, semantic bool) MemoryEntry {
	return MemoryEntry{
		RecordID:   p.ID,
		Category:   CategoryCodePatterns,
		Content:    p.Content,
		FilePath:   p.FilePath,
		Similarity: similarity,
		Semantic:   semantic,
		Timestamp:  p.CreatedAt,
	}
}
