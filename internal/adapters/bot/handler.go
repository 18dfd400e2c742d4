package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-roster-bot/internal/adapters/telegram"
	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/interval"
	"tg-roster-bot/internal/usecase/availability"
	"tg-roster-bot/internal/usecase/poll"
	"tg-roster-bot/internal/usecase/training"
)

var quickEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣"}

const helpText = `Команды:
/day [ГГГГ-ММ-ДД] — вердикт по дню
/poll Вопрос | вариант | вариант — быстрый опрос
/training [ГГГГ-ММ-ДД] — опрос о времени тренировки
/cancelpoll — досрочно закрыть опрос (ответом на него)
/absent ГГГГ-ММ-ДД ГГГГ-ММ-ДД [причина] — отметить отсутствие

Доступность на сегодня присылайте текстом: «10:00-14:00» или «x».`

// Handler обслуживает вебхук бота.
type Handler struct {
	bot          *tgbotapi.BotAPI
	log          zerolog.Logger
	roster       domain.RosterRepo
	schedule     domain.ScheduleRepo
	verdicts     *availability.Service
	polls        *poll.Manager
	training     *training.Service
	loc          *time.Location
	pollDuration time.Duration
}

// NewHandler создаёт обработчик.
func NewHandler(bot *tgbotapi.BotAPI, log zerolog.Logger, roster domain.RosterRepo, schedule domain.ScheduleRepo, verdicts *availability.Service, polls *poll.Manager, trainingUC *training.Service, loc *time.Location, pollDuration time.Duration) *Handler {
	return &Handler{
		bot:          bot,
		log:          log,
		roster:       roster,
		schedule:     schedule,
		verdicts:     verdicts,
		polls:        polls,
		training:     trainingUC,
		loc:          loc,
		pollDuration: pollDuration,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd telegram.Update) {
	if upd.MessageReaction != nil {
		for _, ev := range upd.MessageReaction.Events() {
			h.polls.HandleReaction(ev)
		}
		return
	}
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if msg.From != nil && text != "" && !strings.HasPrefix(text, "/") {
		h.tryHandleAvailabilityInput(ctx, msg.Chat.ID, msg.From.ID, text)
		return
	}
	switch {
	case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
		h.reply(msg.Chat.ID, helpText)
	case strings.HasPrefix(text, "/day"):
		h.handleDay(ctx, msg)
	case strings.HasPrefix(text, "/poll"):
		h.handlePoll(ctx, msg)
	case strings.HasPrefix(text, "/training"):
		h.handleTraining(ctx, msg)
	case strings.HasPrefix(text, "/cancelpoll"):
		h.handleCancelPoll(ctx, msg)
	case strings.HasPrefix(text, "/absent"):
		h.handleAbsent(ctx, msg)
	}
}

func (h *Handler) handleDay(ctx context.Context, msg *tgbotapi.Message) {
	date, err := h.parseDateArg(commandArgs(msg.Text, "/day"))
	if err != nil {
		h.reply(msg.Chat.ID, "Дата должна иметь вид ГГГГ-ММ-ДД.")
		return
	}
	verdict, err := h.verdicts.VerdictFor(ctx, date)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось построить вердикт")
		h.reply(msg.Chat.ID, "Не получилось построить вердикт, попробуйте позже.")
		return
	}
	for _, part := range telegram.SplitMessage(FormatVerdict(verdict)) {
		h.reply(msg.Chat.ID, part)
	}
}

func (h *Handler) handlePoll(ctx context.Context, msg *tgbotapi.Message) {
	title, options, err := ParsePollArgs(commandArgs(msg.Text, "/poll"))
	if err != nil {
		h.reply(msg.Chat.ID, err.Error())
		return
	}
	if _, err := h.polls.Create(ctx, title, domain.PollQuick, options, h.pollDuration); err != nil {
		h.log.Error().Err(err).Msg("не удалось создать опрос")
		h.reply(msg.Chat.ID, "Не получилось создать опрос, попробуйте позже.")
	}
}

func (h *Handler) handleTraining(ctx context.Context, msg *tgbotapi.Message) {
	date, err := h.parseDateArg(commandArgs(msg.Text, "/training"))
	if err != nil {
		h.reply(msg.Chat.ID, "Дата должна иметь вид ГГГГ-ММ-ДД.")
		return
	}
	if _, err := h.training.CreatePoll(ctx, date); err != nil {
		if errors.Is(err, training.ErrNoCommonWindow) {
			h.reply(msg.Chat.ID, "На этот день нет общего окна — голосовать не за что.")
			return
		}
		h.log.Error().Err(err).Msg("не удалось создать тренировочный опрос")
		h.reply(msg.Chat.ID, "Не получилось создать опрос, попробуйте позже.")
	}
}

func (h *Handler) handleCancelPoll(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		h.reply(msg.Chat.ID, "Ответьте командой на сообщение опроса.")
		return
	}
	err := h.polls.Close(ctx, int64(msg.ReplyToMessage.MessageID))
	if errors.Is(err, poll.ErrNotTracked) {
		h.reply(msg.Chat.ID, "Это сообщение не является активным опросом.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось закрыть опрос")
	}
}

func (h *Handler) handleAbsent(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	fields := strings.Fields(commandArgs(msg.Text, "/absent"))
	if len(fields) < 2 {
		h.reply(msg.Chat.ID, "Укажите даты: /absent ГГГГ-ММ-ДД ГГГГ-ММ-ДД [причина].")
		return
	}
	from, err1 := time.ParseInLocation("2006-01-02", fields[0], h.loc)
	to, err2 := time.ParseInLocation("2006-01-02", fields[1], h.loc)
	if err1 != nil || err2 != nil || to.Before(from) {
		h.reply(msg.Chat.ID, "Даты должны иметь вид ГГГГ-ММ-ДД, конец не раньше начала.")
		return
	}
	member, err := h.roster.GetMemberByTGID(ctx, msg.From.ID)
	if err != nil {
		h.reply(msg.Chat.ID, "Вы не числитесь в составе.")
		return
	}
	absence := domain.AbsenceWindow{
		MemberID: member.ID,
		From:     from,
		To:       to,
		Reason:   strings.Join(fields[2:], " "),
	}
	if err := h.schedule.AddAbsence(ctx, absence); err != nil {
		h.log.Error().Err(err).Msg("не удалось сохранить отсутствие")
		h.reply(msg.Chat.ID, "Не получилось сохранить отсутствие, попробуйте позже.")
		return
	}
	h.reply(msg.Chat.ID, fmt.Sprintf("Отсутствие %s записано: %s — %s.", member.DisplayName, fields[0], fields[1]))
}

// tryHandleAvailabilityInput принимает свободный текст как доступность на
// сегодня: окно "HH:MM-HH:MM" либо "x".
func (h *Handler) tryHandleAvailabilityInput(ctx context.Context, chatID, tgUserID int64, text string) {
	raw, ok := NormalizeAvailability(text)
	if !ok {
		return
	}
	member, err := h.roster.GetMemberByTGID(ctx, tgUserID)
	if err != nil {
		return
	}
	today := time.Now().In(h.loc)
	if err := h.schedule.SetRawAvailability(ctx, member.ID, today, raw); err != nil {
		h.log.Error().Err(err).Int64("member", member.ID).Msg("не удалось сохранить доступность")
		h.reply(chatID, "Не получилось сохранить доступность, попробуйте позже.")
		return
	}
	if raw == "x" {
		h.reply(chatID, fmt.Sprintf("%s: на сегодня отмечено «занят».", member.DisplayName))
		return
	}
	h.reply(chatID, fmt.Sprintf("%s: окно %s на сегодня записано.", member.DisplayName, raw))
}

func (h *Handler) parseDateArg(arg string) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		now := time.Now().In(h.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc), nil
	}
	return time.ParseInLocation("2006-01-02", arg, h.loc)
}

func (h *Handler) reply(chatID int64, text string) {
	out := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(out); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить ответ")
	}
}

func commandArgs(text, command string) string {
	rest := strings.TrimPrefix(text, command)
	if at := strings.Index(rest, " "); strings.HasPrefix(rest, "@") && at >= 0 {
		rest = rest[at:]
	}
	return strings.TrimSpace(rest)
}

// ErrBadPollArgs возвращается при некорректных аргументах /poll.
var ErrBadPollArgs = errors.New("формат: /poll Вопрос | вариант | вариант (от 2 до 5 вариантов)")

// ParsePollArgs разбирает аргументы быстрого опроса: заголовок и варианты,
// разделённые вертикальной чертой.
func ParsePollArgs(args string) (string, []domain.PollOption, error) {
	parts := strings.Split(args, "|")
	if len(parts) < 3 {
		return "", nil, ErrBadPollArgs
	}
	title := strings.TrimSpace(parts[0])
	if title == "" {
		return "", nil, ErrBadPollArgs
	}
	var options []domain.PollOption
	for _, part := range parts[1:] {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		if len(options) == len(quickEmojis) {
			return "", nil, ErrBadPollArgs
		}
		options = append(options, domain.PollOption{Emoji: quickEmojis[len(options)], Label: label})
	}
	if len(options) < 2 {
		return "", nil, ErrBadPollArgs
	}
	return title, options, nil
}

// NormalizeAvailability распознаёт свободный текст как строку доступности.
// Латинское и кириллическое «х» равнозначны.
func NormalizeAvailability(text string) (string, bool) {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "x" || trimmed == "х" {
		return "x", true
	}
	if _, err := interval.ParseWindow(trimmed); err == nil {
		return trimmed, true
	}
	return "", false
}
