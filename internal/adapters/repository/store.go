// Package repository holds the in-memory reading log.
package repository

import (
	"context"
	"iter"

	"github.com/okian/linewatch/internal/domain/model"
)

// Log is an append-only, ordered sequence of readings. Entry order is the
// order readings were appended, whatever their timestamps.
type Log interface {
	// Append adds r to the end of the log after deriving its rate and status
	// against the nearest preceding relevant entry. It never reorders and
	// never deduplicates.
	Append(ctx context.Context, r model.Reading) (model.Reading, error)

	// CorrectField overwrites one numeric field of the entry with the given
	// id and re-derives that entry's rate and status only. An empty field
	// name means the schema's rate field.
	CorrectField(ctx context.Context, id, field string, value float64) (model.Reading, error)

	// Get returns the entry with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Reading, error)

	// List returns every entry in log order.
	List(ctx context.Context) []model.Reading

	// Relevant returns a lazy, restartable view of relevant entries.
	Relevant(ctx context.Context) iter.Seq[model.Reading]

	// LastRelevant returns the most recently appended relevant entry.
	LastRelevant(ctx context.Context) (model.Reading, bool)

	// Count returns the number of entries.
	Count(ctx context.Context) int
}
