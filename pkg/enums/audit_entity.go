package enums

import "fmt"

// AuditEntity names the record kinds that carry an action log.
type AuditEntity string

const (
	AuditEntityOrderRequest AuditEntity = "order_request"
	AuditEntityTransaction  AuditEntity = "transaction"
)

var validAuditEntities = []AuditEntity{
	AuditEntityOrderRequest,
	AuditEntityTransaction,
}

func (e AuditEntity) String() string {
	return string(e)
}

// IsValid reports whether the value is a known AuditEntity.
func (e AuditEntity) IsValid() bool {
	for _, candidate := range validAuditEntities {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseAuditEntity converts raw input into an AuditEntity.
func ParseAuditEntity(value string) (AuditEntity, error) {
	for _, candidate := range validAuditEntities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit entity %q", value)
}
