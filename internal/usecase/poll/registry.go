package poll

import (
	"sync"

	"tg-roster-bot/internal/domain"
)

// pollState — стадия жизненного цикла опроса.
type pollState int

const (
	stateActive pollState = iota
	stateClosing
	stateClosed
)

// tracked — один живой опрос со своим замком. Все мутации голосов и стадии
// одного опроса сериализуются этим замком; разные опросы независимы.
type tracked struct {
	mu     sync.Mutex
	poll   domain.Poll
	ledger *Ledger
	timers *Timers
	state  pollState
}

// Registry — явная таблица активных опросов по ID сообщения. Регистр
// принадлежит менеджеру и передаётся ему при создании, поэтому несколько
// независимых менеджеров могут работать в одном процессе.
type Registry struct {
	mu    sync.Mutex
	polls map[int64]*tracked
}

// NewRegistry создаёт пустую таблицу.
func NewRegistry() *Registry {
	return &Registry{polls: make(map[int64]*tracked)}
}

// Register добавляет опрос. Возвращает false, если ID сообщения уже занят:
// на одно сообщение приходится не более одного опроса.
func (r *Registry) Register(t *tracked) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[t.poll.MessageID]; ok {
		return false
	}
	r.polls[t.poll.MessageID] = t
	return true
}

// Unregister удаляет опрос из таблицы.
func (r *Registry) Unregister(messageID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.polls, messageID)
}

// Get возвращает опрос по ID сообщения.
func (r *Registry) Get(messageID int64) (*tracked, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.polls[messageID]
	return t, ok
}

// Len возвращает число отслеживаемых опросов.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.polls)
}

// IDs возвращает ID всех отслеживаемых сообщений.
func (r *Registry) IDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.polls))
	for id := range r.polls {
		ids = append(ids, id)
	}
	return ids
}
