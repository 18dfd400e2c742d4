package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/interval"
)

func TestParsePollArgs(t *testing.T) {
	title, options, err := ParsePollArgs("Играем в субботу? | Да | Нет | Только вечером")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if title != "Играем в субботу?" {
		t.Fatalf("неверный заголовок: %q", title)
	}
	if len(options) != 3 {
		t.Fatalf("ожидалось 3 варианта, получено %d", len(options))
	}
	if options[0].Emoji != "1️⃣" || options[2].Emoji != "3️⃣" {
		t.Fatalf("варианты должны получать цифровые эмодзи по порядку")
	}
	if options[1].Label != "Нет" {
		t.Fatalf("неверный вариант: %q", options[1].Label)
	}
}

func TestParsePollArgsRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"Только заголовок",
		"Вопрос | единственный вариант",
		" | Да | Нет",
		"Вопрос | 1 | 2 | 3 | 4 | 5 | 6",
	}
	for _, args := range cases {
		if _, _, err := ParsePollArgs(args); !errors.Is(err, ErrBadPollArgs) {
			t.Fatalf("аргументы %q должны отклоняться, получено %v", args, err)
		}
	}
}

func TestNormalizeAvailability(t *testing.T) {
	if raw, ok := NormalizeAvailability("  10:00-14:30 "); !ok || raw != "10:00-14:30" {
		t.Fatalf("окно должно распознаваться, получено %q, %v", raw, ok)
	}
	if raw, ok := NormalizeAvailability("X"); !ok || raw != "x" {
		t.Fatalf("латинское X должно нормализоваться в x")
	}
	if raw, ok := NormalizeAvailability("Х"); !ok || raw != "x" {
		t.Fatalf("кириллическое Х должно нормализоваться в x")
	}
	if _, ok := NormalizeAvailability("не знаю пока"); ok {
		t.Fatalf("произвольный текст не должен распознаваться как доступность")
	}
}

func TestFormatVerdict(t *testing.T) {
	win := interval.Window{Start: 19 * 60, End: 21 * 60}
	v := domain.DayVerdict{
		Date:               time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:             domain.StatusWithSubs,
		AvailableMainCount: 3,
		AvailableSubCount:  1,
		CommonWindow:       &win,
		Available: []domain.MemberDayState{
			{Member: domain.Member{DisplayName: "Ваня"}, State: domain.StateAvailable, Window: &win},
		},
		Unavailable: []domain.MemberDayState{
			{Member: domain.Member{DisplayName: "Петя"}, State: domain.StateAbsent},
		},
		NoResponse: []domain.MemberDayState{
			{Member: domain.Member{DisplayName: "Коля"}, State: domain.StateNoResponse},
		},
	}
	text := FormatVerdict(v)
	for _, want := range []string{
		"14.03.2026",
		"Основа: 3, замены: 1",
		"Общее окно: 19:00-21:00",
		"Ваня 19:00-21:00",
		"Петя (отсутствует)",
		"Коля",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("в тексте нет %q:\n%s", want, text)
		}
	}
}

func TestFormatVerdictOffDay(t *testing.T) {
	v := domain.DayVerdict{
		Date:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status: domain.StatusOffDay,
	}
	text := FormatVerdict(v)
	if strings.Contains(text, "Основа") {
		t.Fatalf("в Off-Day не должно быть счётчиков состава:\n%s", text)
	}
}
