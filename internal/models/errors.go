package models

import "errors"

// Сентинельные ошибки доменного уровня
var (
	ErrInvalidRequest    = errors.New("некорректный запрос генерации")
	ErrTaskNotFound      = errors.New("задача не найдена")
	ErrGenerationFailed  = errors.New("ошибка генерации текста AI")
	ErrSchemaValidation  = errors.New("ответ AI не соответствует схеме")
	ErrValidationBlocked = errors.New("граф сюжета содержит блокирующие логические нарушения")
	ErrGuardBlocked      = errors.New("входной текст заблокирован защитным фильтром")
)
