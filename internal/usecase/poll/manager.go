package poll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/metrics"
)

// ErrNotTracked возвращается при попытке закрыть неизвестный опрос.
var ErrNotTracked = errors.New("опрос не отслеживается")

// ErrNoOptions возвращается при создании опроса без вариантов.
var ErrNoOptions = errors.New("опрос должен содержать хотя бы один вариант")

// ErrDuplicateEmoji возвращается, если эмодзи вариантов не уникальны.
var ErrDuplicateEmoji = errors.New("эмодзи вариантов должны быть уникальны")

// WinnerStrategy выбирает победителя при нулевом числе голосов.
type WinnerStrategy func(options []domain.PollOption) int

// FirstOptionWins — стратегия по умолчанию: побеждает первый вариант.
func FirstOptionWins([]domain.PollOption) int { return 0 }

// Config задаёт параметры менеджера опросов.
type Config struct {
	ChatID        int64
	Tick          time.Duration
	RecoverScan   int
	OpTimeout     time.Duration
	DefaultWinner WinnerStrategy
}

// Manager ведёт опросы через жизненный цикл ACTIVE → CLOSING → CLOSED.
// Состояние живёт только в памяти: носителем для переживания рестарта
// служит само сообщение в чате, см. Recover.
type Manager struct {
	chat     domain.ChatPlatform
	history  domain.ChatHistory
	registry *Registry
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewManager создаёт менеджер опросов для одного чата.
func NewManager(chat domain.ChatPlatform, history domain.ChatHistory, registry *Registry, cfg Config, log zerolog.Logger) *Manager {
	if cfg.Tick <= 0 {
		cfg.Tick = 30 * time.Second
	}
	if cfg.RecoverScan <= 0 {
		cfg.RecoverScan = 50
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 10 * time.Second
	}
	if cfg.DefaultWinner == nil {
		cfg.DefaultWinner = FirstOptionWins
	}
	return &Manager{chat: chat, history: history, registry: registry, cfg: cfg, log: log, now: time.Now}
}

func (m *Manager) opCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, m.cfg.OpTimeout)
}

// Create публикует новый опрос и начинает отслеживать его.
func (m *Manager) Create(ctx context.Context, title string, kind domain.PollKind, options []domain.PollOption, duration time.Duration) (int64, error) {
	if len(options) == 0 {
		return 0, ErrNoOptions
	}
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		if seen[opt.Emoji] {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateEmoji, opt.Emoji)
		}
		seen[opt.Emoji] = true
	}

	p := domain.Poll{
		ChatID:    m.cfg.ChatID,
		Title:     title,
		Kind:      kind,
		Options:   options,
		ExpiresAt: m.now().Add(duration),
	}
	ledger := NewLedger(len(options))

	sendCtx, cancel := m.opCtx(ctx)
	defer cancel()
	messageID, err := m.chat.SendMessage(sendCtx, p.ChatID, EncodeActive(p, ledger, m.now()))
	if err != nil {
		metrics.BotSendErrors.Inc()
		return 0, fmt.Errorf("публикация опроса: %w", err)
	}
	p.MessageID = messageID

	reactCtx, cancelReact := m.opCtx(ctx)
	defer cancelReact()
	emojis := make([]string, 0, len(options))
	for _, opt := range options {
		emojis = append(emojis, opt.Emoji)
	}
	if err := m.chat.AddReactions(reactCtx, p.ChatID, messageID, emojis); err != nil {
		// Опрос работает и без подсказки реакций, пользователи ставят свои.
		m.log.Warn().Err(err).Int64("message", messageID).Msg("не удалось добавить реакции")
	}

	// Таймеры назначаются под замком опроса до того, как регистрация сделает
	// его видимым конкурентному Close: иначе Close может прочитать нулевые
	// таймеры и оставить горутину жить до дедлайна.
	t := &tracked{poll: p, ledger: ledger, state: stateActive}
	t.mu.Lock()
	if !m.registry.Register(t) {
		t.mu.Unlock()
		return 0, fmt.Errorf("сообщение %d уже занято опросом", messageID)
	}
	t.timers = StartTimers(p.ExpiresAt, m.cfg.Tick, func() { m.refresh(messageID) }, func() { m.expire(messageID) })
	t.mu.Unlock()
	metrics.PollsCreated.WithLabelValues(string(kind)).Inc()
	m.log.Info().Int64("message", messageID).Str("kind", string(kind)).Time("expires", p.ExpiresAt).Msg("опрос создан")
	return messageID, nil
}

// HandleReaction учитывает событие реакции. События по неотслеживаемым
// сообщениям, от самого бота и по незнакомым эмодзи игнорируются. Повторная
// доставка одного события изменений не вносит.
func (m *Manager) HandleReaction(ev domain.ReactionEvent) {
	if ev.UserID == m.chat.BotUserID() {
		return
	}
	t, ok := m.registry.Get(ev.MessageID)
	if !ok {
		return
	}

	t.mu.Lock()
	if t.state != stateActive {
		t.mu.Unlock()
		return
	}
	option := optionIndex(t.poll.Options, ev.Emoji)
	if option < 0 {
		t.mu.Unlock()
		return
	}
	changed := t.ledger.Toggle(option, ev.UserID, ev.Added)
	t.mu.Unlock()

	if !changed {
		return
	}
	metrics.PollVotes.WithLabelValues(string(t.poll.Kind)).Inc()
	// Неудачный рендер не теряет голос: счётчики обновятся на следующем тике.
	m.refresh(ev.MessageID)
}

// refresh перерисовывает сообщение опроса: счётчики голосов и остаток
// времени в подвале.
func (m *Manager) refresh(messageID int64) {
	t, ok := m.registry.Get(messageID)
	if !ok {
		return
	}
	t.mu.Lock()
	if t.state != stateActive {
		t.mu.Unlock()
		return
	}
	msg := EncodeActive(t.poll, t.ledger, m.now())
	chatID := t.poll.ChatID
	t.mu.Unlock()

	ctx, cancel := m.opCtx(context.Background())
	defer cancel()
	if err := m.chat.EditMessage(ctx, chatID, messageID, msg); err != nil {
		metrics.BotSendErrors.Inc()
		m.log.Warn().Err(err).Int64("message", messageID).Msg("не удалось обновить опрос, повтор на следующем тике")
	}
}

func (m *Manager) expire(messageID int64) {
	if err := m.Close(context.Background(), messageID); err != nil && !errors.Is(err, ErrNotTracked) {
		m.log.Error().Err(err).Int64("message", messageID).Msg("не удалось закрыть опрос по таймеру")
	}
}

// Close завершает опрос: останавливает таймеры, подводит итог, перерисовывает
// сообщение в закрытом виде и снимает реакции. Таймер и административное
// закрытие могут вызвать Close наперегонки — второй вызов ничего не делает.
func (m *Manager) Close(ctx context.Context, messageID int64) error {
	t, ok := m.registry.Get(messageID)
	if !ok {
		return ErrNotTracked
	}

	t.mu.Lock()
	if t.state != stateActive {
		t.mu.Unlock()
		return nil
	}
	t.state = stateClosing
	if t.timers != nil {
		t.timers.Stop()
	}
	winner := m.pickWinner(t)
	msg := EncodeClosed(t.poll, t.ledger, winner)
	p := t.poll
	winnerVoters := t.ledger.Voters(winner)
	t.mu.Unlock()

	editCtx, cancelEdit := m.opCtx(ctx)
	if err := m.chat.EditMessage(editCtx, p.ChatID, messageID, msg); err != nil {
		metrics.BotSendErrors.Inc()
		m.log.Warn().Err(err).Int64("message", messageID).Msg("не удалось показать итоги опроса")
	}
	cancelEdit()

	stripCtx, cancelStrip := m.opCtx(ctx)
	if err := m.chat.RemoveAllReactions(stripCtx, p.ChatID, messageID); err != nil {
		m.log.Warn().Err(err).Int64("message", messageID).Msg("не удалось снять реакции")
	}
	cancelStrip()

	m.registry.Unregister(messageID)
	t.mu.Lock()
	t.state = stateClosed
	t.mu.Unlock()

	metrics.PollsClosed.WithLabelValues(string(p.Kind)).Inc()
	m.log.Info().Int64("message", messageID).Str("winner", p.Options[winner].Display()).Ints64("voters", winnerVoters).Msg("опрос закрыт")
	return nil
}

// pickWinner выбирает победителя. Сортировка по голосам стабильна, поэтому
// при равенстве побеждает вариант с меньшим исходным индексом. При нуле
// голосов решает настроенная стратегия.
func (m *Manager) pickWinner(t *tracked) int {
	if t.ledger.Total() == 0 {
		w := m.cfg.DefaultWinner(t.poll.Options)
		if w < 0 || w >= len(t.poll.Options) {
			w = 0
		}
		return w
	}
	idx := make([]int, len(t.poll.Options))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.ledger.Count(idx[a]) > t.ledger.Count(idx[b])
	})
	return idx[0]
}

// Recover восстанавливает незавершённые опросы после рестарта процесса.
// Она сканирует последние сообщения канала, распознаёт открытые опросы по
// маркерам в тексте и заново наполняет журналы голосов из актуальных списков
// реакций платформы — локальное состояние при рестарте потеряно. Голоса,
// отданные между чтением списков реакций и подпиской на события, могут быть
// потеряны; это осознанное ограничение, а не скрытая ошибка.
func (m *Manager) Recover(ctx context.Context) error {
	scanCtx, cancel := context.WithTimeout(ctx, 4*m.cfg.OpTimeout)
	defer cancel()
	messages, err := m.history.RecentMessages(scanCtx, m.cfg.ChatID, m.cfg.RecoverScan)
	if err != nil {
		return fmt.Errorf("чтение истории канала: %w", err)
	}

	recovered := 0
	for _, msg := range messages {
		if !msg.FromSelf {
			continue
		}
		rec, err := ParseText(msg.Text)
		if errors.Is(err, ErrNotPollMessage) {
			continue
		}
		if err != nil {
			m.log.Warn().Err(err).Int64("message", msg.ID).Msg("сообщение похоже на опрос, но не восстановимо, пропускаем")
			continue
		}
		if rec.Closed {
			continue
		}
		if m.recoverOne(ctx, msg.ID, rec) {
			recovered++
		}
	}
	m.log.Info().Int("recovered", recovered).Int("scanned", len(messages)).Msg("восстановление опросов завершено")
	return nil
}

func (m *Manager) recoverOne(ctx context.Context, messageID int64, rec Recovered) bool {
	p := domain.Poll{
		MessageID: messageID,
		ChatID:    m.cfg.ChatID,
		Title:     rec.Title,
		Kind:      rec.Kind,
		Options:   rec.Options,
		ExpiresAt: rec.ExpiresAt,
	}
	ledger := NewLedger(len(p.Options))
	botID := m.chat.BotUserID()
	for i, opt := range p.Options {
		votersCtx, cancel := m.opCtx(ctx)
		voters, err := m.history.ReactionVoters(votersCtx, p.ChatID, messageID, opt.Emoji)
		cancel()
		if err != nil {
			m.log.Warn().Err(err).Int64("message", messageID).Str("emoji", opt.Emoji).Msg("не удалось прочитать голоса варианта")
			continue
		}
		filtered := voters[:0]
		for _, v := range voters {
			if v != botID {
				filtered = append(filtered, v)
			}
		}
		ledger.Seed(i, filtered)
	}

	t := &tracked{poll: p, ledger: ledger, state: stateActive}
	expired := !p.ExpiresAt.After(m.now())
	t.mu.Lock()
	if !m.registry.Register(t) {
		t.mu.Unlock()
		m.log.Warn().Int64("message", messageID).Msg("опрос уже зарегистрирован, пропускаем")
		return false
	}
	if !expired {
		t.timers = StartTimers(p.ExpiresAt, m.cfg.Tick, func() { m.refresh(messageID) }, func() { m.expire(messageID) })
	}
	t.mu.Unlock()
	if expired {
		// Дедлайн прошёл, пока процесс лежал: закрываем сразу.
		if err := m.Close(ctx, messageID); err != nil {
			m.log.Error().Err(err).Int64("message", messageID).Msg("не удалось закрыть просроченный опрос")
		}
		return true
	}
	m.log.Info().Int64("message", messageID).Str("kind", string(p.Kind)).Time("expires", p.ExpiresAt).Msg("опрос восстановлен")
	return true
}

// Shutdown останавливает таймеры всех опросов, не закрывая их: после
// рестарта Recover подхватит их заново.
func (m *Manager) Shutdown() {
	for _, id := range m.registry.IDs() {
		if t, ok := m.registry.Get(id); ok {
			t.mu.Lock()
			if t.timers != nil {
				t.timers.Stop()
			}
			t.mu.Unlock()
		}
	}
}

func optionIndex(options []domain.PollOption, emoji string) int {
	for i, opt := range options {
		if opt.Emoji == emoji {
			return i
		}
	}
	return -1
}
