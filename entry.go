package stripepool

import "time"

// entry pairs a live resource with its last-return timestamp and, for
// bounded-reuse pools, the number of times it has been handed out. uses is
// simply unread by pools that don't enable bounded reuse, so one struct
// serves every pool configuration instead of branching into two types.
type entry struct {
	resource any
	lastUse  time.Time
	uses     uint64
}
