package editor

import "context"

// UpdateVerticesBatch applies vertex patches. Batches above the chunk
// threshold are applied ChunkSize at a time, releasing the store and yielding
// between chunks; ids deleted in the meantime are skipped. No history entry
// is written.
func (s *Store) UpdateVerticesBatch(ctx context.Context, updates []VertexUpdate) error {
	if len(updates) <= s.opts.ChunkThreshold {
		s.UpdateMultipleVertices(updates)
		return nil
	}
	return forEachChunk(ctx, len(updates), s.opts.ChunkSize, func(lo, hi int) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, u := range updates[lo:hi] {
			s.applyVertexPatchLocked(u.ID, u.Patch)
		}
	})
}

// UpdateShapesBatch merges position, rotation and scale into each shape
// without regenerating vertices; callers move owned vertices through
// UpdateVerticesBatch. Chunking follows UpdateVerticesBatch.
func (s *Store) UpdateShapesBatch(ctx context.Context, updates []ShapeUpdate) error {
	apply := func(batch []ShapeUpdate) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, u := range batch {
			if i := s.shapeIndexLocked(u.ID); i >= 0 {
				mergeShapeTransform(&s.shapes[i], u.Patch)
			}
		}
	}

	if len(updates) <= s.opts.ChunkThreshold {
		apply(updates)
		return nil
	}
	return forEachChunk(ctx, len(updates), s.opts.ChunkSize, func(lo, hi int) {
		apply(updates[lo:hi])
	})
}
