package bot

import (
	"fmt"
	"strings"

	"tg-roster-bot/internal/domain"
)

var statusLines = map[domain.DayStatus]string{
	domain.StatusOffDay:     "🛌 Off-Day — сбор не планируется.",
	domain.StatusFullRoster: "✅ Полный основной состав.",
	domain.StatusWithSubs:   "🟡 Собираемся с заменами.",
	domain.StatusNotEnough:  "🔴 Людей не хватает.",
	domain.StatusUnknown:    "❔ Никто пока не ответил.",
}

// FormatVerdict превращает вердикт по дню в текст телеграм-сообщения.
func FormatVerdict(v domain.DayVerdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s\n", v.Date.Format("02.01.2006"))
	b.WriteString(statusLines[v.Status])
	b.WriteString("\n")
	if v.Status == domain.StatusOffDay {
		return b.String()
	}
	fmt.Fprintf(&b, "Основа: %d, замены: %d\n", v.AvailableMainCount, v.AvailableSubCount)
	if v.CommonWindow != nil {
		fmt.Fprintf(&b, "Общее окно: %s\n", v.CommonWindow.String())
	} else if len(v.Available) > 0 {
		b.WriteString("Общего окна нет.\n")
	}
	writeSection(&b, "Свободны", v.Available)
	writeSection(&b, "Недоступны", v.Unavailable)
	writeSection(&b, "Не ответили", v.NoResponse)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, title string, states []domain.MemberDayState) {
	if len(states) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, s := range states {
		b.WriteString("• ")
		b.WriteString(s.Member.DisplayName)
		switch {
		case s.State == domain.StateAbsent:
			b.WriteString(" (отсутствует)")
		case s.Window != nil:
			b.WriteString(" " + s.Window.String())
		}
		b.WriteString("\n")
	}
}
