package entity

import (
	"context"

	"go.uber.org/zap"
)

// CreateMany runs the full create pipeline for each payload. The target
// is snapshotted first; any failure restores the snapshot and returns
// the first error, so a batch either lands whole or not at all.
func (e *Engine) CreateMany(ctx context.Context, targetName string, payloads []map[string]any) ([]*Response, error) {
	cfg, err := e.resolve(targetName)
	if err != nil {
		return nil, err
	}
	t, err := e.target(cfg, nil)
	if err != nil {
		return nil, err
	}
	snap, err := e.store.Snapshot(ctx, t)
	if err != nil {
		return nil, err
	}

	responses := make([]*Response, 0, len(payloads))
	for i, payload := range payloads {
		req, err := normalizeRequest(&Request{TargetName: targetName, Payload: payload})
		if err == nil {
			var resp *Response
			resp, err = e.create(ctx, req)
			if err == nil {
				responses = append(responses, resp)
				continue
			}
		}
		if rerr := e.store.Restore(ctx, t, snap); rerr != nil {
			e.logger.Error("batch rollback failed",
				zap.String("entity", targetName),
				zap.Error(rerr))
		}
		e.logger.Warn("batch create aborted",
			zap.String("entity", targetName),
			zap.Int("index", i),
			zap.Error(err))
		return nil, err
	}
	return responses, nil
}

// UpdateMany applies each payload as an update, rolling the target back
// to its pre-batch state on the first failure.
func (e *Engine) UpdateMany(ctx context.Context, targetName string, payloads []map[string]any) ([]*Response, error) {
	cfg, err := e.resolve(targetName)
	if err != nil {
		return nil, err
	}
	t, err := e.target(cfg, nil)
	if err != nil {
		return nil, err
	}
	snap, err := e.store.Snapshot(ctx, t)
	if err != nil {
		return nil, err
	}

	responses := make([]*Response, 0, len(payloads))
	for i, payload := range payloads {
		resp, err := e.Update(ctx, map[string]any{
			"targetName": targetName,
			"payload":    payload,
		})
		if err != nil {
			if rerr := e.store.Restore(ctx, t, snap); rerr != nil {
				e.logger.Error("batch rollback failed",
					zap.String("entity", targetName),
					zap.Error(rerr))
			}
			e.logger.Warn("batch update aborted",
				zap.String("entity", targetName),
				zap.Int("index", i),
				zap.Error(err))
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// DeleteMany removes each keyed record. The returned slice reports, per
// key, whether a record was removed. A storage or hook failure restores
// the snapshot and returns the error.
func (e *Engine) DeleteMany(ctx context.Context, targetName string, keys []string) ([]bool, error) {
	cfg, err := e.resolve(targetName)
	if err != nil {
		return nil, err
	}
	t, err := e.target(cfg, nil)
	if err != nil {
		return nil, err
	}
	snap, err := e.store.Snapshot(ctx, t)
	if err != nil {
		return nil, err
	}

	removed := make([]bool, 0, len(keys))
	for i, key := range keys {
		ok, err := e.Delete(ctx, targetName, key)
		if err != nil {
			if rerr := e.store.Restore(ctx, t, snap); rerr != nil {
				e.logger.Error("batch rollback failed",
					zap.String("entity", targetName),
					zap.Error(rerr))
			}
			e.logger.Warn("batch delete aborted",
				zap.String("entity", targetName),
				zap.Int("index", i),
				zap.Error(err))
			return nil, err
		}
		removed = append(removed, ok)
	}
	return removed, nil
}
