package reservations

import "time"

// CancellationNotice is the minimum lead time before a booking's first slot
// for a cancellation to be accepted. This is a hard business rule, not
// configuration.
const CancellationNotice = 2 * time.Hour

// Cancellable reports whether a booking whose earliest slot starts at
// earliestStart may still be cancelled at now. The boundary is inclusive:
// exactly two hours of notice is enough, one second less is not.
func Cancellable(earliestStart, now time.Time) bool {
	return earliestStart.Sub(now) >= CancellationNotice
}
