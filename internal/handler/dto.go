package handler

import "github.com/himax12/PlotLine/internal/models"

// generateRequest - тело POST /api/narrative/generate.
type generateRequest struct {
	InputText      string `json:"input_text" binding:"required"`
	TargetGenre    string `json:"target_genre"`
	TargetAudience string `json:"target_audience"`
	Tone           string `json:"tone"`
	WordsPerScene  int    `json:"words_per_scene"`
	SafetyLevel    string `json:"safety_level"`
}

func (r *generateRequest) toModel() *models.GenerationRequest {
	req := &models.GenerationRequest{
		InputText:      r.InputText,
		TargetGenre:    r.TargetGenre,
		TargetAudience: r.TargetAudience,
		Tone:           r.Tone,
		WordsPerScene:  r.WordsPerScene,
		SafetyLevel:    models.SafetyLevel(r.SafetyLevel),
	}
	req.ApplyDefaults()
	return req
}

// generateResponse - ответ 202 на постановку задачи.
type generateResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// statusResponse - ответ GET /api/narrative/status/:task_id.
type statusResponse struct {
	TaskID string                  `json:"task_id"`
	Status string                  `json:"status"`
	Result *models.NarrativeResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// errorResponse - единый формат ошибок API.
type errorResponse struct {
	Error string `json:"error"`
}
