package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-roster-bot/internal/domain"
)

// Update расширяет tgbotapi.Update апдейтом message_reaction из Bot API
// 7.x: в tgbotapi v5 такого поля ещё нет, поэтому вебхук декодирует сырой
// JSON в эту структуру.
type Update struct {
	tgbotapi.Update
	MessageReaction *MessageReactionUpdated `json:"message_reaction"`
}

// MessageReactionUpdated описывает изменение набора реакций пользователя
// на сообщении.
type MessageReactionUpdated struct {
	Chat        tgbotapi.Chat  `json:"chat"`
	MessageID   int            `json:"message_id"`
	User        *tgbotapi.User `json:"user"`
	Date        int64          `json:"date"`
	OldReaction []Reaction     `json:"old_reaction"`
	NewReaction []Reaction     `json:"new_reaction"`
}

// Reaction — одна реакция в списке. Кастомные эмодзи приходят с пустым
// полем Emoji и опросами игнорируются.
type Reaction struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// Events превращает изменение реакций в события голосования: по одному на
// каждый добавленный и снятый эмодзи.
func (u *MessageReactionUpdated) Events() []domain.ReactionEvent {
	if u == nil || u.User == nil {
		return nil
	}
	old := make(map[string]bool, len(u.OldReaction))
	for _, r := range u.OldReaction {
		if r.Emoji != "" {
			old[r.Emoji] = true
		}
	}
	next := make(map[string]bool, len(u.NewReaction))
	for _, r := range u.NewReaction {
		if r.Emoji != "" {
			next[r.Emoji] = true
		}
	}

	var events []domain.ReactionEvent
	for emoji := range next {
		if !old[emoji] {
			events = append(events, domain.ReactionEvent{
				ChatID:    u.Chat.ID,
				MessageID: int64(u.MessageID),
				Emoji:     emoji,
				UserID:    u.User.ID,
				Added:     true,
			})
		}
	}
	for emoji := range old {
		if !next[emoji] {
			events = append(events, domain.ReactionEvent{
				ChatID:    u.Chat.ID,
				MessageID: int64(u.MessageID),
				Emoji:     emoji,
				UserID:    u.User.ID,
				Added:     false,
			})
		}
	}
	return events
}
