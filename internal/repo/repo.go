// Package repo holds the gorm persistence layer. Every multi-write unit runs
// inside a DB transaction and quantity changes are guarded UPDATEs, so
// concurrent mutations never lose a read-modify-write.
package repo

import (
	"github.com/emkxpress/shop/internal/identity"
	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB

	// shipLocks serializes flag mutations per shipping profile. Under
	// READ COMMITTED two concurrent clearFlag updates can each miss the
	// other's uncommitted flag row, so the transaction alone cannot keep
	// the exactly-one invariants.
	shipLocks KeyLock[uint]
}

// ownerScope narrows a query to rows belonging to one owner key. A user row
// never has a session component and an anonymous row never has a user one.
func ownerScope(q *gorm.DB, owner identity.OwnerKey) *gorm.DB {
	if owner.IsAuthenticated() {
		return q.Where("user_id = ?", owner.UserID)
	}
	return q.Where("user_id IS NULL AND session_id = ?", owner.SessionToken)
}
