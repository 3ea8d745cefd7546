package events

import "time"

// Event codes for the domain lifecycle. Downstream consumers (audit trail,
// cache invalidation) key off these.
const (
	TypeDomainCreated   = "DOMAIN_CREATED"
	TypeDomainDeleted   = "DOMAIN_DELETED"
	TypeDomainReindexed = "DOMAIN_REINDEXED"
	TypeFileIndexed     = "FILE_INDEXED"
	TypeFileDeleted     = "FILE_DELETED"
)

func NewDomainCreatedEvent(domain string, vectorSize int, distance string) Event {
	return BaseEvent{
		Type: TypeDomainCreated,
		Data: map[string]interface{}{
			"domain":      domain,
			"vector_size": vectorSize,
			"distance":    distance,
		},
		OccurredAt: time.Now(),
	}
}

func NewDomainDeletedEvent(domain string) Event {
	return BaseEvent{
		Type:       TypeDomainDeleted,
		Data:       map[string]interface{}{"domain": domain},
		OccurredAt: time.Now(),
	}
}

func NewDomainReindexedEvent(domain string, files, failures int) Event {
	return BaseEvent{
		Type: TypeDomainReindexed,
		Data: map[string]interface{}{
			"domain":   domain,
			"files":    files,
			"failures": failures,
		},
		OccurredAt: time.Now(),
	}
}

func NewFileIndexedEvent(domain, filename string, chunkCount int) Event {
	return BaseEvent{
		Type: TypeFileIndexed,
		Data: map[string]interface{}{
			"domain":      domain,
			"filename":    filename,
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewFileDeletedEvent(domain, filename string, bytesRemoved bool) Event {
	return BaseEvent{
		Type: TypeFileDeleted,
		Data: map[string]interface{}{
			"domain":        domain,
			"filename":      filename,
			"bytes_removed": bytesRemoved,
		},
		OccurredAt: time.Now(),
	}
}
