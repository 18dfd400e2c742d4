package domain

import "time"

// PollKind различает свободные опросы и опросы о времени тренировки.
type PollKind string

const (
	PollQuick    PollKind = "QUICK"
	PollTraining PollKind = "TRAINING"
)

// PollOption — один вариант опроса. Emoji уникален в пределах опроса и
// служит ключом реакции; DisplayValue при непустом значении заменяет Label
// при отображении.
type PollOption struct {
	Emoji        string `json:"emoji"`
	Label        string `json:"label"`
	DisplayValue string `json:"display_value,omitempty"`
}

// Display возвращает строку варианта для показа пользователю.
func (o PollOption) Display() string {
	if o.DisplayValue != "" {
		return o.DisplayValue
	}
	return o.Label
}

// Poll — активный опрос. Ключом служит ID сообщения в чате: опросы не
// пишутся в БД, сообщение и есть носитель состояния.
type Poll struct {
	MessageID int64
	ChatID    int64
	Title     string
	Kind      PollKind
	Options   []PollOption
	ExpiresAt time.Time
}

// RenderedField — одна строка-поле сообщения (по одному на вариант опроса).
type RenderedField struct {
	Name  string
	Value string
}

// RenderedMessage — платформо-независимое представление сообщения: заголовок,
// текст, список полей и подвал. Конкретный адаптер превращает его в формат
// своей платформы.
type RenderedMessage struct {
	Title  string
	Body   string
	Fields []RenderedField
	Footer string
	Emojis []string
}

// ReactionEvent — входящее событие реакции из чата.
type ReactionEvent struct {
	ChatID    int64
	MessageID int64
	Emoji     string
	UserID    int64
	Added     bool
}

// ChannelMessage — сообщение канала, прочитанное при восстановлении опросов.
type ChannelMessage struct {
	ID       int64
	FromSelf bool
	Text     string
	Date     time.Time
}
