package vitality

// ShouldNotify decides whether an open/escalate transition produces
// caregiver-visible output. Shadow mode suppresses the side effect while state
// tracking continues, which is how new threshold configs are trialled in
// production. A steady level never re-notifies.
func ShouldNotify(shadowMode bool, newLevel int, lastNotifiedLevel *int) bool {
	if shadowMode {
		return false
	}
	if lastNotifiedLevel == nil {
		return true
	}
	return newLevel > *lastNotifiedLevel
}
