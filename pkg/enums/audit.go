package enums

import "fmt"

// AuditOperation maps to the audit_operation_enum in Postgres.
type AuditOperation string

const (
	AuditOpLockAcquire AuditOperation = "lock_acquire"
	AuditOpLockRelease AuditOperation = "lock_release"
	AuditOpScan        AuditOperation = "scan"
	AuditOpComplete    AuditOperation = "complete"
	AuditOpAbandon     AuditOperation = "abandon"
)

var validAuditOperations = []AuditOperation{
	AuditOpLockAcquire,
	AuditOpLockRelease,
	AuditOpScan,
	AuditOpComplete,
	AuditOpAbandon,
}

// IsValid reports whether the value matches the canonical audit_operation_enum.
func (a AuditOperation) IsValid() bool {
	for _, candidate := range validAuditOperations {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditOperation converts raw input into an AuditOperation.
func ParseAuditOperation(value string) (AuditOperation, error) {
	for _, candidate := range validAuditOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit operation %q", value)
}

// AuditOutcome maps to the audit_outcome_enum in Postgres.
type AuditOutcome string

const (
	AuditOutcomeSuccess  AuditOutcome = "success"
	AuditOutcomeFailed   AuditOutcome = "failed"
	AuditOutcomeOverScan AuditOutcome = "over_scan"
	AuditOutcomeError    AuditOutcome = "error"
)

var validAuditOutcomes = []AuditOutcome{
	AuditOutcomeSuccess,
	AuditOutcomeFailed,
	AuditOutcomeOverScan,
	AuditOutcomeError,
}

// IsValid reports whether the value matches the canonical audit_outcome_enum.
func (a AuditOutcome) IsValid() bool {
	for _, candidate := range validAuditOutcomes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditOutcome converts raw input into an AuditOutcome.
func ParseAuditOutcome(value string) (AuditOutcome, error) {
	for _, candidate := range validAuditOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit outcome %q", value)
}
