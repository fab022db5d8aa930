package mutation

import (
	"sync/atomic"

	"github.com/bft-labs/folio/internal/domain"
)

var provisionalSeq atomic.Int64

// nextProvisionalID returns a fresh negative id for a record that only
// exists in the cache while its create is in flight.
func nextProvisionalID() domain.ID {
	return domain.ID(-provisionalSeq.Add(1))
}
