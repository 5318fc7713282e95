package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction,
// mirroring the ambient go.mod's pattern for threading a tx boundary
// through repository methods without every call site re-deriving it.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Resolve returns the bound transaction if present, otherwise db.
func (c Context) Resolve(db *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return db
}
