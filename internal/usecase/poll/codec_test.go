package poll

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tg-roster-bot/internal/domain"
)

func samplePoll() domain.Poll {
	return domain.Poll{
		MessageID: 100,
		ChatID:    -1,
		Title:     "Во что играем",
		Kind:      domain.PollQuick,
		Options: []domain.PollOption{
			{Emoji: "1️⃣", Label: "Ranked"},
			{Emoji: "2️⃣", Label: "Scrim"},
		},
		ExpiresAt: time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC),
	}
}

// flatten собирает текст так же, как адаптер платформы собирает его из
// RenderedMessage.
func flatten(msg domain.RenderedMessage) string {
	var b strings.Builder
	b.WriteString(msg.Title + "\n")
	if msg.Body != "" {
		b.WriteString(msg.Body + "\n")
	}
	for _, f := range msg.Fields {
		b.WriteString(f.Name + " " + f.Value + "\n")
	}
	b.WriteString(msg.Footer)
	return b.String()
}

func TestEncodeParseRoundTrip(t *testing.T) {
	p := samplePoll()
	ledger := NewLedger(len(p.Options))
	ledger.Toggle(0, 7, true)
	msg := EncodeActive(p, ledger, p.ExpiresAt.Add(-30*time.Minute))

	rec, err := ParseText(flatten(msg))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if rec.Closed {
		t.Fatalf("открытый опрос не должен считаться закрытым")
	}
	if rec.Kind != domain.PollQuick || rec.Title != p.Title {
		t.Fatalf("ожидали %s/%s, получили %s/%s", domain.PollQuick, p.Title, rec.Kind, rec.Title)
	}
	if len(rec.Options) != 2 || rec.Options[0].Emoji != "1️⃣" || rec.Options[1].Label != "Scrim" {
		t.Fatalf("варианты восстановлены неверно: %+v", rec.Options)
	}
	if !rec.ExpiresAt.Equal(p.ExpiresAt) {
		t.Fatalf("дедлайн должен восстановиться точно: %v vs %v", rec.ExpiresAt, p.ExpiresAt)
	}
}

func TestParseClosedPoll(t *testing.T) {
	p := samplePoll()
	ledger := NewLedger(len(p.Options))
	msg := EncodeClosed(p, ledger, 0)

	rec, err := ParseText(flatten(msg))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !rec.Closed {
		t.Fatalf("закрытый опрос должен распознаваться по маркеру")
	}
}

func TestParseForeignMessage(t *testing.T) {
	_, err := ParseText("просто сообщение в чате\nбез маркеров")
	if !errors.Is(err, ErrNotPollMessage) {
		t.Fatalf("ожидали ErrNotPollMessage, получили %v", err)
	}
}

func TestParseAmbiguousWithoutExpiry(t *testing.T) {
	text := "📊 опрос\n1️⃣ Ranked — 0\nподвал без дедлайна · #poll_quick"
	_, err := ParseText(text)
	if !errors.Is(err, ErrAmbiguousMessage) {
		t.Fatalf("ожидали ErrAmbiguousMessage, получили %v", err)
	}
}

func TestParseAmbiguousWithoutOptions(t *testing.T) {
	text := "📊 опрос\n⏳ осталось 5м · #exp1767000000 · #poll_quick"
	_, err := ParseText(text)
	if !errors.Is(err, ErrAmbiguousMessage) {
		t.Fatalf("ожидали ErrAmbiguousMessage, получили %v", err)
	}
}

func TestEncodeTrainingUsesDisplayValue(t *testing.T) {
	p := samplePoll()
	p.Kind = domain.PollTraining
	p.Options = []domain.PollOption{{Emoji: "1️⃣", Label: "19:00", DisplayValue: "Начало в 19:00"}}
	msg := EncodeActive(p, NewLedger(1), p.ExpiresAt.Add(-time.Hour))
	if !strings.Contains(msg.Fields[0].Value, "Начало в 19:00") {
		t.Fatalf("DisplayValue должен заменять Label: %q", msg.Fields[0].Value)
	}
	if !strings.Contains(msg.Footer, "#poll_training") {
		t.Fatalf("подвал должен нести маркер вида опроса: %q", msg.Footer)
	}
}
