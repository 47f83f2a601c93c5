package models

import "time"

// EventType - тип события прогресса генерации.
type EventType string

// Типы событий, публикуемых пайплайном по ходу работы
const (
	EventWorkflowStart      EventType = "workflow_start"
	EventGraphCreated       EventType = "graph_created"
	EventMappingComplete    EventType = "mapping_complete"
	EventValidationComplete EventType = "validation_complete"
	EventNodeStart          EventType = "node_start"
	EventNodeComplete       EventType = "node_complete"
	EventChunkStart         EventType = "chunk_start"
	EventChunkReasoning     EventType = "chunk_reasoning"
	EventChunkComplete      EventType = "chunk_complete"
	EventGuardInputBlocked  EventType = "guard_input_blocked"
	EventGuardOutputBlocked EventType = "guard_output_blocked"
	EventMemoryCompressed   EventType = "memory_compressed"
	EventWorkflowComplete   EventType = "workflow_complete"
	EventError              EventType = "error"
	EventHeartbeat          EventType = "heartbeat"
)

// IsTerminal сообщает, завершает ли событие поток задачи.
func (t EventType) IsTerminal() bool {
	switch t {
	case EventWorkflowComplete, EventError, EventGuardInputBlocked:
		return true
	default:
		return false
	}
}

// ProgressEvent - одно событие прогресса, отдаваемое подписчикам потока.
type ProgressEvent struct {
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewProgressEvent создает событие с текущей меткой времени.
func NewProgressEvent(t EventType, data map[string]any) ProgressEvent {
	if data == nil {
		data = map[string]any{}
	}
	return ProgressEvent{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// HeartbeatEvent - пустое событие для поддержания соединения открытым.
func HeartbeatEvent() ProgressEvent {
	return NewProgressEvent(EventHeartbeat, nil)
}
