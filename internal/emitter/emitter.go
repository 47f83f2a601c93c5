package emitter

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/himax12/PlotLine/internal/models"
)

// defaultBufferSize - емкость канала событий одной задачи. Пайплайн
// публикует события не блокируясь; переполнение буфера означает, что
// подписчик безнадежно отстал, и старейшее событие вытесняется.
const defaultBufferSize = 256

// Emitter раздает события прогресса подписчикам по идентификатору задачи.
// Канал задачи создается при регистрации (до старта пайплайна), поэтому
// события, опубликованные до подключения подписчика, не теряются.
type Emitter struct {
	mu       sync.Mutex
	channels map[string]chan models.ProgressEvent
	log      zerolog.Logger
}

// New создает Emitter с выводом служебных логов через zerolog.
func New() *Emitter {
	return &Emitter{
		channels: make(map[string]chan models.ProgressEvent),
		log:      zerolog.New(os.Stderr).With().Timestamp().Str("component", "emitter").Logger(),
	}
}

// Register создает канал событий для задачи. Повторная регистрация
// того же ID - no-op.
func (e *Emitter) Register(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.channels[taskID]; exists {
		return
	}
	e.channels[taskID] = make(chan models.ProgressEvent, defaultBufferSize)
	e.log.Debug().Str("task_id", taskID).Msg("task channel registered")
}

// Subscribe возвращает канал событий задачи для чтения.
// Возвращает nil, если задача не зарегистрирована.
func (e *Emitter) Subscribe(taskID string) <-chan models.ProgressEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[taskID]
	if !ok {
		return nil
	}
	return ch
}

// Emit публикует событие в канал задачи, не блокируя вызывающего.
// События для незарегистрированных задач молча отбрасываются.
// Порядок событий одной задачи сохраняется (один писатель на задачу).
func (e *Emitter) Emit(taskID string, event models.ProgressEvent) {
	e.mu.Lock()
	ch, ok := e.channels[taskID]
	e.mu.Unlock()
	if !ok {
		e.log.Debug().Str("task_id", taskID).Str("type", string(event.Type)).
			Msg("event dropped: task not registered")
		return
	}

	for {
		select {
		case ch <- event:
			return
		default:
			// Буфер полон: вытесняем старейшее событие, чтобы не блокировать пайплайн
			select {
			case dropped := <-ch:
				e.log.Warn().Str("task_id", taskID).Str("dropped_type", string(dropped.Type)).
					Msg("subscriber too slow, oldest event evicted")
			default:
			}
		}
	}
}

// Close закрывает канал задачи и освобождает ресурсы.
// Вызывается после публикации терминального события.
func (e *Emitter) Close(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[taskID]
	if !ok {
		return
	}
	delete(e.channels, taskID)
	close(ch)
	e.log.Debug().Str("task_id", taskID).Msg("task channel closed")
}
