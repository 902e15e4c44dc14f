// Package idhash maps external user identifiers to internal int64 keys.
//
// Telegram ids are numeric today, but the external identity is carried as
// a string to avoid precision loss and to tolerate future non-numeric id
// formats. Numeric strings map to their own value; everything else is
// hashed with FNV-1a. Two distinct non-numeric ids can collide on the
// same internal key; that is a documented limitation of the mapping, not
// an error condition.
package idhash

import (
	"hash/fnv"
	"strconv"
)

// InternalKey returns a non-negative int64 key for an external id.
// A string that parses as a non-negative int64 is used verbatim, so
// numeric ids never collide with each other.
func InternalKey(externalID string) int64 {
	if n, err := strconv.ParseInt(externalID, 10, 64); err == nil && n >= 0 {
		return n
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(externalID))
	// clear the sign bit so keys stay valid for BIGINT columns that
	// assume non-negative ids
	return int64(h.Sum64() &^ (1 << 63))
}
