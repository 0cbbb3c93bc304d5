package enums

// ScanOutcome is the caller-visible result of a single scan attempt.
type ScanOutcome string

const (
	ScanOutcomeSuccess        ScanOutcome = "success"
	ScanOutcomeLockTimeout    ScanOutcome = "lock_timeout"
	ScanOutcomeOverScan       ScanOutcome = "over_scan"
	ScanOutcomeNoMatch        ScanOutcome = "no_match"
	ScanOutcomeWrongWarehouse ScanOutcome = "wrong_warehouse"
)

var validScanOutcomes = []ScanOutcome{
	ScanOutcomeSuccess,
	ScanOutcomeLockTimeout,
	ScanOutcomeOverScan,
	ScanOutcomeNoMatch,
	ScanOutcomeWrongWarehouse,
}

// IsValid reports whether the value is a known ScanOutcome.
func (o ScanOutcome) IsValid() bool {
	for _, candidate := range validScanOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}
