package repository

import (
	"sync"

	"github.com/himax12/PlotLine/internal/models"
)

// ArtifactStore хранит промежуточные артефакты этапов (маппинг, результаты
// валидации) для отладочных эндпоинтов. Живет в памяти процесса: артефакты
// диагностические и воспроизводимы повторным запуском задачи.
type ArtifactStore struct {
	mu          sync.RWMutex
	mappings    map[string]*models.AnalogicalMapping
	validations map[string][]models.ValidationResult
}

// NewArtifactStore создает пустое хранилище артефактов.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		mappings:    make(map[string]*models.AnalogicalMapping),
		validations: make(map[string][]models.ValidationResult),
	}
}

// SaveMapping сохраняет маппинг задачи. nil игнорируется.
func (s *ArtifactStore) SaveMapping(taskID string, mapping *models.AnalogicalMapping) {
	if mapping == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[taskID] = mapping
}

// SaveValidations сохраняет результаты валидации задачи.
func (s *ArtifactStore) SaveValidations(taskID string, results []models.ValidationResult) {
	if len(results) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations[taskID] = results
}

// GetMapping возвращает маппинг задачи, ok=false пока этап не завершен.
func (s *ArtifactStore) GetMapping(taskID string) (*models.AnalogicalMapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mapping, ok := s.mappings[taskID]
	return mapping, ok
}

// GetValidations возвращает результаты валидации задачи.
func (s *ArtifactStore) GetValidations(taskID string) ([]models.ValidationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, ok := s.validations[taskID]
	return results, ok
}
