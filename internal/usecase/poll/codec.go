package poll

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tg-roster-bot/internal/domain"
)

// Машиночитаемые маркеры в подвале сообщения. По ним recover отличает
// опросы бота от обычных сообщений и открытые опросы от закрытых.
const (
	tagQuick    = "#poll_quick"
	tagTraining = "#poll_training"
	tagClosed   = "#poll_closed"
	tagExpiry   = "#exp"

	closedFooter = "Голосование завершено"
)

var (
	// ErrNotPollMessage — сообщение не является опросом бота.
	ErrNotPollMessage = errors.New("сообщение не похоже на опрос")
	// ErrAmbiguousMessage — сообщение похоже на опрос, но обязательные
	// метаданные отсутствуют; такое сообщение пропускается при
	// восстановлении.
	ErrAmbiguousMessage = errors.New("у опроса не хватает метаданных")
)

// Recovered — опрос, прочитанный обратно из текста сообщения.
type Recovered struct {
	Title     string
	Kind      domain.PollKind
	Options   []domain.PollOption
	ExpiresAt time.Time
	Closed    bool
}

func kindPrefix(kind domain.PollKind) string {
	if kind == domain.PollTraining {
		return "🏋"
	}
	return "📊"
}

func kindTag(kind domain.PollKind) string {
	if kind == domain.PollTraining {
		return tagTraining
	}
	return tagQuick
}

// EncodeActive строит представление открытого опроса: по одному полю на
// вариант и подвал с дедлайном.
func EncodeActive(p domain.Poll, ledger *Ledger, now time.Time) domain.RenderedMessage {
	msg := domain.RenderedMessage{
		Title: fmt.Sprintf("%s %s", kindPrefix(p.Kind), p.Title),
		Body:  "Голосуйте реакциями под сообщением.",
	}
	for i, opt := range p.Options {
		msg.Fields = append(msg.Fields, domain.RenderedField{
			Name:  opt.Emoji,
			Value: fmt.Sprintf("%s — %d", opt.Display(), ledger.Count(i)),
		})
		msg.Emojis = append(msg.Emojis, opt.Emoji)
	}
	remaining := p.ExpiresAt.Sub(now).Round(time.Minute)
	if remaining < 0 {
		remaining = 0
	}
	msg.Footer = fmt.Sprintf("⏳ осталось %s · %s%d · %s", formatRemaining(remaining), tagExpiry, p.ExpiresAt.Unix(), kindTag(p.Kind))
	return msg
}

// EncodeClosed строит итоговое представление: финальный счёт и победитель.
func EncodeClosed(p domain.Poll, ledger *Ledger, winner int) domain.RenderedMessage {
	msg := domain.RenderedMessage{Title: fmt.Sprintf("%s %s", kindPrefix(p.Kind), p.Title)}
	for i, opt := range p.Options {
		value := fmt.Sprintf("%s — %d", opt.Display(), ledger.Count(i))
		if i == winner {
			value += " 🏆"
		}
		msg.Fields = append(msg.Fields, domain.RenderedField{Name: opt.Emoji, Value: value})
	}
	msg.Footer = fmt.Sprintf("%s · %s · %s", closedFooter, tagClosed, kindTag(p.Kind))
	return msg
}

func formatRemaining(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%dч %02dм", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dм", int(d.Minutes()))
}

// ParseText восстанавливает опрос из плоского текста сообщения. Формат
// строк обязан совпадать с тем, что собирает адаптер платформы из
// RenderedMessage: заголовок, тело, строки вариантов "эмодзи значение — N",
// подвал с маркерами.
func ParseText(text string) (Recovered, error) {
	lines := splitLines(text)
	if len(lines) < 2 {
		return Recovered{}, ErrNotPollMessage
	}
	footer := lines[len(lines)-1]
	var rec Recovered
	switch {
	case strings.Contains(footer, tagTraining):
		rec.Kind = domain.PollTraining
	case strings.Contains(footer, tagQuick):
		rec.Kind = domain.PollQuick
	default:
		return Recovered{}, ErrNotPollMessage
	}
	rec.Closed = strings.Contains(footer, tagClosed)

	title := lines[0]
	if cut, ok := strings.CutPrefix(title, kindPrefix(rec.Kind)+" "); ok {
		title = cut
	}
	rec.Title = title

	for _, line := range lines[1 : len(lines)-1] {
		opt, ok := parseOptionLine(line)
		if !ok {
			continue
		}
		rec.Options = append(rec.Options, opt)
	}
	if len(rec.Options) == 0 {
		return Recovered{}, ErrAmbiguousMessage
	}

	if !rec.Closed {
		expiry, err := parseExpiry(footer)
		if err != nil {
			return Recovered{}, err
		}
		rec.ExpiresAt = expiry
	}
	return rec, nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseOptionLine(line string) (domain.PollOption, bool) {
	sep := strings.LastIndex(line, " — ")
	if sep < 0 {
		return domain.PollOption{}, false
	}
	left := line[:sep]
	emoji, display, ok := strings.Cut(left, " ")
	if !ok || emoji == "" || display == "" {
		return domain.PollOption{}, false
	}
	return domain.PollOption{Emoji: emoji, Label: display}, true
}

func parseExpiry(footer string) (time.Time, error) {
	for _, token := range strings.Fields(footer) {
		if !strings.HasPrefix(token, tagExpiry) {
			continue
		}
		raw := strings.TrimPrefix(token, tagExpiry)
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: дедлайн %q", ErrAmbiguousMessage, raw)
		}
		return time.Unix(unix, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: нет маркера дедлайна", ErrAmbiguousMessage)
}
