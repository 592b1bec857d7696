package port

import "context"

// SubscriberRegistry is the process-lifetime set of digest recipients.
type SubscriberRegistry interface {
	// Add returns true when the recipient was not registered before
	Add(recipientID string) bool

	// Snapshot returns the current recipients in no particular order
	Snapshot() []string

	Len() int
}

// Transport delivers text to a remote party.
type Transport interface {
	Send(ctx context.Context, recipientID, text string) error
}
