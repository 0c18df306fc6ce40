package registration

// HasAvailableSpot reports whether another registration fits. active must be counted
// while holding the event lock.
func HasAvailableSpot(active, maxParticipants int) bool {
	return active < maxParticipants
}
