package models

// ViolationType - категория логического нарушения в графе сюжета.
type ViolationType string

const (
	ViolationPrecondition ViolationType = "precondition" // Неудовлетворенное предусловие
	ViolationTemporal     ViolationType = "temporal"     // Нарушение временного порядка
	ViolationCommonsense  ViolationType = "commonsense"  // Нарушение здравого смысла (Tier 2)
)

// ViolationSeverity - серьезность нарушения.
type ViolationSeverity string

const (
	SeverityError   ViolationSeverity = "error"   // Блокирующее нарушение
	SeverityWarning ViolationSeverity = "warning" // Рекомендательное
)

// ValidationViolation - одно найденное нарушение логики сюжета.
type ValidationViolation struct {
	ViolationType ViolationType     `json:"violation_type"`
	Description   string            `json:"description"`
	NodeID        string            `json:"node_id"`
	Severity      ViolationSeverity `json:"severity"`
}

// ValidationResult - итог проверки логической целостности графа.
type ValidationResult struct {
	IsValid     bool                  `json:"is_valid"`
	Violations  []ValidationViolation `json:"violations"`
	Suggestions []string              `json:"suggestions"`
	Reasoning   string                `json:"reasoning"`
}

// BlockingViolations возвращает количество нарушений уровня error.
func (r *ValidationResult) BlockingViolations() int {
	n := 0
	for i := range r.Violations {
		if r.Violations[i].Severity == SeverityError {
			n++
		}
	}
	return n
}
