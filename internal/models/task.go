package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus - статус фоновой задачи генерации.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// GenerationRequest - входные параметры запроса генерации истории.
type GenerationRequest struct {
	InputText      string      `json:"input_text"`
	TargetGenre    string      `json:"target_genre"`
	TargetAudience string      `json:"target_audience"`
	Tone           string      `json:"tone"`
	WordsPerScene  int         `json:"words_per_scene"`
	SafetyLevel    SafetyLevel `json:"safety_level"`
}

// ApplyDefaults заполняет незаданные поля значениями по умолчанию.
func (r *GenerationRequest) ApplyDefaults() {
	if r.TargetGenre == "" {
		r.TargetGenre = "General Fiction"
	}
	if r.TargetAudience == "" {
		r.TargetAudience = "General"
	}
	if r.Tone == "" {
		r.Tone = "Neutral"
	}
	if r.WordsPerScene == 0 {
		r.WordsPerScene = 200
	}
	if r.SafetyLevel == "" {
		r.SafetyLevel = SafetyLevelNone
	}
}

// Validate проверяет корректность запроса после подстановки умолчаний.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.InputText) == "" {
		return fmt.Errorf("%w: input_text не может быть пустым", ErrInvalidRequest)
	}
	if r.WordsPerScene < MinWordsPerScene || r.WordsPerScene > MaxWordsPerScene {
		return fmt.Errorf("%w: words_per_scene должен быть в диапазоне [%d, %d]",
			ErrInvalidRequest, MinWordsPerScene, MaxWordsPerScene)
	}
	if !IsValidSafetyLevel(r.SafetyLevel) {
		return fmt.Errorf("%w: недопустимый safety_level %q", ErrInvalidRequest, r.SafetyLevel)
	}
	return nil
}

// NarrativeResult - итог успешной генерации, отдаваемый клиенту.
type NarrativeResult struct {
	Title      string            `json:"title,omitempty"`
	StoryText  string            `json:"story_text"`
	GraphNodes int               `json:"graph_nodes"`
	Chunks     map[string]string `json:"chunks"`
	TotalWords int               `json:"total_words"`
}

// TaskRecord - запись о задаче генерации в хранилище задач.
type TaskRecord struct {
	TaskID    string           `json:"task_id"`
	UserID    string           `json:"user_id,omitempty"`
	Status    TaskStatus       `json:"status"`
	Result    *NarrativeResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// GenerationResult - строка результата для постоянного хранилища.
type GenerationResult struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Genre            string     `json:"genre"`
	NodeCount        int        `json:"node_count"`
	Chunks           int        `json:"chunks"`
	FullText         string     `json:"full_text"`
	TotalWords       int        `json:"total_words"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	PromptTokens     int        `json:"prompt_tokens"`
	CompletionTokens int        `json:"completion_tokens"`
	EstimatedCostUSD float64    `json:"estimated_cost_usd"`
}
