package domain

import (
	"time"

	"tg-roster-bot/internal/interval"
)

// Member описывает участника состава.
type Member struct {
	ID          int64
	TGUserID    int64
	DisplayName string
	Role        MemberRole
	SortOrder   int
	CreatedAt   time.Time
}

// AvailabilityEntry — сырое состояние участника на один календарный день.
// Пустая строка — нет ответа, "x" — занят, "HH:MM-HH:MM" — свободное окно.
type AvailabilityEntry struct {
	MemberID int64
	Date     time.Time
	Raw      string
}

// AbsenceWindow — отсутствие участника в диапазоне дат (обе даты включительно).
type AbsenceWindow struct {
	MemberID int64
	From     time.Time
	To       time.Time
	Reason   string
}

// Covers сообщает, попадает ли дата в окно отсутствия.
func (a AbsenceWindow) Covers(date time.Time) bool {
	day := dateOnly(date)
	return !day.Before(dateOnly(a.From)) && !day.After(dateOnly(a.To))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EffectiveState — фактическое состояние участника после применения отсутствий.
type EffectiveState string

const (
	StateAvailable   EffectiveState = "AVAILABLE"
	StateUnavailable EffectiveState = "UNAVAILABLE"
	StateAbsent      EffectiveState = "ABSENT"
	StateNoResponse  EffectiveState = "NO_RESPONSE"
)

// DayStatus — итоговый вердикт по дню.
type DayStatus string

const (
	StatusOffDay     DayStatus = "OFF_DAY"
	StatusFullRoster DayStatus = "FULL_ROSTER"
	StatusWithSubs   DayStatus = "WITH_SUBS"
	StatusNotEnough  DayStatus = "NOT_ENOUGH"
	StatusUnknown    DayStatus = "UNKNOWN"
)

// OffDayTag — метка дня, при которой анализ расписания не выполняется.
const OffDayTag = "Off-Day"

// MemberDayState — участник с вычисленным состоянием на день.
type MemberDayState struct {
	Member Member
	State  EffectiveState
	Window *interval.Window
}

// DayVerdict — агрегированный вердикт по одному дню. Создаётся заново на
// каждый запрос и после этого не изменяется.
type DayVerdict struct {
	Date               time.Time
	Status             DayStatus
	AvailableMainCount int
	AvailableSubCount  int
	CommonWindow       *interval.Window
	Available          []MemberDayState
	Unavailable        []MemberDayState
	NoResponse         []MemberDayState
}
