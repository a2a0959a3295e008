package application

import (
	"context"
	"errors"
	"log/slog"
)

type pageFetcher[T any] func(ctx context.Context, page, pageSize int) ([]T, error)

// fetchPaginated walks pages from 1 until an empty page, a short page or
// maxRecords records. A failing page ends the walk; the records gathered so
// far are returned together with the error.
func fetchPaginated[T any](ctx context.Context, branch string, maxRecords, pageSize int, fetch pageFetcher[T]) ([]T, error) {
	if maxRecords <= 0 {
		return nil, nil
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, maxRecords)

	var acc []T
	for page := 1; len(acc) < maxRecords; page++ {
		items, err := fetch(ctx, page, pageSize)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Warn("fetch cancelled", "branch", branch, "page", page, "kept", len(acc))
			} else {
				slog.Error("fetch failed", "branch", branch, "page", page, "kept", len(acc), "err", err)
			}
			return truncate(acc, maxRecords), err
		}
		if len(items) == 0 {
			break
		}
		acc = append(acc, items...)
		if len(items) < pageSize {
			break
		}
	}
	slog.Debug("pagination finished", "branch", branch, "count", len(acc))
	return truncate(acc, maxRecords), nil
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
