// Package sheets defines the ports through which the dashboard reads its
// four extracts, whatever holds them: local files, Google Sheets, the SQLite
// snapshot or memory.
package sheets

import (
	"context"

	"painel/internal/core"
)

// Ports for outbound adapters.
type (
	// TableReader returns the raw header and cells of one extract.
	TableReader interface {
		ReadTable(ctx context.Context, kind core.Kind) (core.Table, error)
	}

	// TableWriter replaces the stored copy of one extract.
	TableWriter interface {
		WriteTable(ctx context.Context, kind core.Kind, t core.Table) error
	}

	// SourceNamer identifies where a reader takes its extracts from. The
	// name keys the dataset cache.
	SourceNamer interface {
		SourceName() string
	}
)
