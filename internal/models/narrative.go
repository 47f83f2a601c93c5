package models

// SafetyLevel определяет уровень фильтрации генерируемого контента.
type SafetyLevel string

// Допустимые уровни безопасности
const (
	SafetyLevelNone   SafetyLevel = "none"
	SafetyLevelLow    SafetyLevel = "low"
	SafetyLevelMedium SafetyLevel = "medium"
	SafetyLevelHigh   SafetyLevel = "high"
)

// IsValidSafetyLevel проверяет, является ли строка допустимым уровнем безопасности.
func IsValidSafetyLevel(lvl SafetyLevel) bool {
	switch lvl {
	case SafetyLevelNone, SafetyLevelLow, SafetyLevelMedium, SafetyLevelHigh:
		return true
	default:
		return false
	}
}

// Границы для WordsPerScene (валидируются при приеме запроса)
const (
	MinWordsPerScene = 50
	MaxWordsPerScene = 1000
)

// EventNode - один атомарный узел сюжета (одно событие истории).
type EventNode struct {
	ID             string   `json:"id"`                  // Уникальный идентификатор узла (генерирует AI)
	Action         string   `json:"action"`              // Ключевое действие (например, "Betray", "Arrive")
	Actors         []string `json:"actors"`              // Участвующие сущности
	Preconditions  []string `json:"preconditions"`       // Что должно быть истинно ДО события
	Postconditions []string `json:"postconditions"`      // Что становится истинным ПОСЛЕ события
	Reasoning      string   `json:"reasoning"`           // Трасса рассуждений AI при создании узла
	Archetype      string   `json:"archetype,omitempty"` // Аннотация этапа маппинга
}

// CausalEdge - направленное ребро между узлами сюжета.
type CausalEdge struct {
	Source   string `json:"source"`   // ID исходного узла
	Target   string `json:"target"`   // ID целевого узла
	Relation string `json:"relation"` // Тип связи ("causes", "then", по умолчанию "next")
}

// PlanGraph - каузальный скелет истории: узлы событий и связи между ними.
// Создается один раз этапом деконструкции; топология после этого не меняется,
// этап маппинга лишь аннотирует узлы на месте.
type PlanGraph struct {
	Nodes []EventNode  `json:"nodes"`
	Edges []CausalEdge `json:"edges"`
}

// NodeIndex возвращает индекс узла по ID или -1, если узел не найден.
func (g *PlanGraph) NodeIndex(id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// HasNode проверяет наличие узла с данным ID в графе.
func (g *PlanGraph) HasNode(id string) bool {
	return g.NodeIndex(id) >= 0
}

// NarrativeMemory - скользящий контекст для связности прозы между сценами.
type NarrativeMemory struct {
	RunningSummary string            `json:"running_summary"` // Высокоуровневое резюме сюжета
	LastParagraph  string            `json:"last_paragraph"`  // Дословно последний отрендеренный текст
	StyleGuide     string            `json:"style_guide"`     // Текущие инструкции по тону/стилю
	CriticalFacts  []string          `json:"critical_facts"`  // Факты, которые нельзя забывать
	EntityRegistry map[string]string `json:"entity_registry"` // Канонические имена сущностей (id -> имя)
}

// WorldState - снимок состояния мира (глобальные атрибуты: время, место и т.д.).
// Ключи атрибутов участвуют в символической валидации предусловий.
type WorldState struct {
	Attributes map[string]any `json:"attributes"`
}

// SatisfiedConditions возвращает множество условий, которые состояние мира
// считает выполненными изначально (ключи атрибутов).
func (w *WorldState) SatisfiedConditions() map[string]struct{} {
	set := make(map[string]struct{}, len(w.Attributes))
	for k := range w.Attributes {
		set[k] = struct{}{}
	}
	return set
}

// NarrativeState - рабочая память одного запроса генерации.
// Создается при старте задачи, мутируется каждым этапом по очереди
// (конкурентных писателей нет) и отбрасывается по завершении фоновой задачи.
type NarrativeState struct {
	InputText      string      `json:"input_text"`
	TargetGenre    string      `json:"target_genre"`
	TargetAudience string      `json:"target_audience"`
	Tone           string      `json:"tone"`
	WordsPerScene  int         `json:"words_per_scene"`
	SafetyLevel    SafetyLevel `json:"safety_level"`

	Graph      PlanGraph       `json:"graph"`
	WorldState WorldState      `json:"world_state"`
	Memory     NarrativeMemory `json:"memory"`

	// RenderedChunks: ID узла -> проза. Ключи всегда подмножество ID узлов графа,
	// множество растет монотонно по ходу цикла скрайбинга.
	RenderedChunks map[string]string `json:"rendered_chunks"`

	AnalogicalMapping *AnalogicalMapping `json:"analogical_mapping,omitempty"`
	ValidationResults []ValidationResult `json:"validation_results"`

	InputGuardResult   *GuardResult  `json:"input_guard_result,omitempty"`
	OutputGuardResults []GuardResult `json:"output_guard_results"`

	ErrorLogs []string `json:"error_logs"`
}

// NewNarrativeState создает начальное состояние для запроса генерации.
func NewNarrativeState(req *GenerationRequest) *NarrativeState {
	return &NarrativeState{
		InputText:      req.InputText,
		TargetGenre:    req.TargetGenre,
		TargetAudience: req.TargetAudience,
		Tone:           req.Tone,
		WordsPerScene:  req.WordsPerScene,
		SafetyLevel:    req.SafetyLevel,
		WorldState:     WorldState{Attributes: make(map[string]any)},
		Memory:         NarrativeMemory{EntityRegistry: make(map[string]string)},
		RenderedChunks: make(map[string]string),
	}
}

// FullText собирает итоговый текст истории из чанков в порядке узлов графа.
func (s *NarrativeState) FullText() string {
	out := ""
	for i := range s.Graph.Nodes {
		chunk, ok := s.RenderedChunks[s.Graph.Nodes[i].ID]
		if !ok {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += chunk
	}
	return out
}
