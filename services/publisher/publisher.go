package publisher

import "prisradar/offerworker/internal/domain"

// Publisher emits category refresh events for downstream UI consumers.
type Publisher interface {
	// PublishRefresh publishes a refreshed offer snapshot for a category
	PublishRefresh(category domain.Category, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
