package events

// Topic constants for domain events emitted by the platform.
const (
	TopicEntryCreated  = "entry.created"
	TopicEntryUpdated  = "entry.updated"
	TopicEntryUnpriced = "entry.unpriced"
	TopicRateActivated = "rate.activated"
	TopicFarmerCreated = "farmer.created"
	TopicFarmerAbsent  = "farmer.absent"
)

// DefaultTopics returns the canonical list of topics that support notifications.
// Emit rejects anything outside this set so a typo in a caller cannot
// silently create a topic no feed or notifier knows about.
func DefaultTopics() []string {
	return []string{
		TopicEntryCreated,
		TopicEntryUpdated,
		TopicEntryUnpriced,
		TopicRateActivated,
		TopicFarmerCreated,
		TopicFarmerAbsent,
	}
}

var knownTopics = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, topic := range DefaultTopics() {
		set[topic] = struct{}{}
	}
	return set
}()
