package models

// EntityArchetype - привязка сущности истории к нарративному архетипу.
type EntityArchetype struct {
	EntityName string `json:"entity_name"`
	Archetype  string `json:"archetype"` // Например "Hero", "Mentor", "Shadow"
}

// AnalogicalMapping - результат этапа маппинга: перевод буквальных
// сущностей и действий в обобщенные нарративные паттерны.
type AnalogicalMapping struct {
	EntityArchetypes []EntityArchetype `json:"entity_archetypes"`
	ActionPatterns   []string          `json:"action_patterns"` // Например "Quest", "Betrayal"
	StructureType    string            `json:"structure_type"`  // Например "Three-Act", "Hero's Journey"
	EmotionalArc     []string          `json:"emotional_arc"`   // Эмоциональная траектория по порядку
	Reasoning        string            `json:"reasoning"`
}

// ArchetypeFor возвращает архетип сущности или пустую строку, если маппинга нет.
func (m *AnalogicalMapping) ArchetypeFor(entity string) string {
	for i := range m.EntityArchetypes {
		if m.EntityArchetypes[i].EntityName == entity {
			return m.EntityArchetypes[i].Archetype
		}
	}
	return ""
}
