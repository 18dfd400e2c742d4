package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/metrics"
)

// Platform реализует domain.ChatPlatform поверх Bot API. Таймауты вызовов
// обеспечивает HTTP клиент самого бота; контексты проверяются до похода в
// сеть.
type Platform struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ domain.ChatPlatform = (*Platform)(nil)

// NewPlatform создаёт адаптер чата.
func NewPlatform(bot *tgbotapi.BotAPI, log zerolog.Logger) *Platform {
	return &Platform{bot: bot, log: log}
}

// SendMessage отправляет сообщение и возвращает его ID.
func (p *Platform) SendMessage(ctx context.Context, chatID int64, msg domain.RenderedMessage) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out := tgbotapi.NewMessage(chatID, RenderHTML(msg))
	out.ParseMode = tgbotapi.ModeHTML
	start := time.Now()
	sent, err := p.bot.Send(out)
	metrics.ObserveNetworkRequest("telegram", "send_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return 0, fmt.Errorf("отправка сообщения: %w", err)
	}
	return int64(sent.MessageID), nil
}

// EditMessage заменяет текст сообщения.
func (p *Platform) EditMessage(ctx context.Context, chatID, messageID int64, msg domain.RenderedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, int(messageID), RenderHTML(msg))
	edit.ParseMode = tgbotapi.ModeHTML
	start := time.Now()
	_, err := p.bot.Send(edit)
	metrics.ObserveNetworkRequest("telegram", "edit_message", strconv.FormatInt(chatID, 10), start, err)
	if err != nil {
		return fmt.Errorf("редактирование сообщения: %w", err)
	}
	return nil
}

type reactionType struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// setMessageReaction появился в Bot API 7.0; в tgbotapi v5 типизированной
// обёртки нет, поэтому используется сырой запрос.
func (p *Platform) setReaction(chatID, messageID int64, emojis []string) error {
	reactions := make([]reactionType, 0, len(emojis))
	for _, e := range emojis {
		reactions = append(reactions, reactionType{Type: "emoji", Emoji: e})
	}
	payload, err := json.Marshal(reactions)
	if err != nil {
		return err
	}
	params := tgbotapi.Params{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"message_id": strconv.FormatInt(messageID, 10),
		"reaction":   string(payload),
	}
	start := time.Now()
	_, err = p.bot.MakeRequest("setMessageReaction", params)
	metrics.ObserveNetworkRequest("telegram", "set_reaction", strconv.FormatInt(chatID, 10), start, err)
	return err
}

// AddReactions выставляет реакцию-подсказку. Telegram позволяет боту не
// более одной собственной реакции, поэтому подсказкой служит первый эмодзи;
// остальные перечислены в тексте опроса.
func (p *Platform) AddReactions(ctx context.Context, chatID, messageID int64, emojis []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(emojis) == 0 {
		return nil
	}
	if err := p.setReaction(chatID, messageID, emojis[:1]); err != nil {
		return fmt.Errorf("подсказка реакции: %w", err)
	}
	return nil
}

// RemoveAllReactions снимает реакцию бота. Чужие реакции Telegram ботам
// снимать не даёт; закрытый опрос определяется по подвалу, а не по
// отсутствию реакций.
func (p *Platform) RemoveAllReactions(ctx context.Context, chatID, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.setReaction(chatID, messageID, nil); err != nil {
		return fmt.Errorf("снятие реакции: %w", err)
	}
	return nil
}

// BotUserID возвращает ID учётной записи бота.
func (p *Platform) BotUserID() int64 {
	return p.bot.Self.ID
}

// RenderHTML собирает RenderedMessage в HTML текст Telegram. Построчная
// структура согласована с poll.ParseText: заголовок, тело, по строке на
// поле, подвал.
func RenderHTML(msg domain.RenderedMessage) string {
	var b strings.Builder
	b.WriteString("<b>" + escape(msg.Title) + "</b>\n")
	if msg.Body != "" {
		b.WriteString(escape(msg.Body) + "\n")
	}
	for _, f := range msg.Fields {
		b.WriteString(escape(f.Name) + " " + escape(f.Value) + "\n")
	}
	if msg.Footer != "" {
		b.WriteString("<i>" + escape(msg.Footer) + "</i>")
	}
	return strings.TrimRight(b.String(), "\n")
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}
