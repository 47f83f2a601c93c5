package models

// RiskLevel - оценка риска нарушения авторских прав для текста.
type RiskLevel string

const (
	RiskSafe   RiskLevel = "safe"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// GuardViolationType - тип нарушения, найденного защитным фильтром.
type GuardViolationType string

const (
	GuardViolationCopyright  GuardViolationType = "copyright"
	GuardViolationDerivative GuardViolationType = "derivative_work"
)

// GuardViolation - одно найденное совпадение с защищенным материалом.
type GuardViolation struct {
	ViolationType   GuardViolationType `json:"violation_type"`
	Severity        RiskLevel          `json:"severity"`
	Description     string             `json:"description"`
	Confidence      float64            `json:"confidence"`
	MatchedElements []string           `json:"matched_elements"`
}

// GuardResult - вердикт защитного фильтра для одного текста.
type GuardResult struct {
	IsSafe             bool             `json:"is_safe"`
	OverallRisk        RiskLevel        `json:"overall_risk"`
	Violations         []GuardViolation `json:"violations"`
	Reasoning          string           `json:"reasoning"`
	TransformationHint string           `json:"transformation_hint,omitempty"`
}

// Порядок уровней риска для сравнения с порогом блокировки
var riskRank = map[RiskLevel]int{
	RiskSafe:   0,
	RiskLow:    1,
	RiskMedium: 2,
	RiskHigh:   3,
}

// BlocksAt сообщает, блокирует ли данный уровень риска вывод при заданном
// уровне безопасности. RiskSafe не блокирует никогда. Пороги: none и low
// блокируют только high, medium блокирует от medium, high блокирует от low.
func (r RiskLevel) BlocksAt(lvl SafetyLevel) bool {
	if r == RiskSafe {
		return false
	}
	threshold := riskRank[RiskHigh]
	switch lvl {
	case SafetyLevelMedium:
		threshold = riskRank[RiskMedium]
	case SafetyLevelHigh:
		threshold = riskRank[RiskLow]
	}
	return riskRank[r] >= threshold
}
