package index

import (
	"context"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
)

// Store is the injected persistence collaborator. The engine reads a
// snapshot at startup and appends one record per completed calibration
// reduction; it never rewrites history.
type Store interface {
	// Load returns every persisted header set in insertion order.
	Load(ctx context.Context) ([]header.Set, error)
	// Append durably adds one record.
	Append(ctx context.Context, h header.Set) error
}
