package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/metrics"
	"tg-roster-bot/internal/interval"
)

// Threshold — одна строка таблицы классификации: минимум доступных игроков
// и присваиваемый статус.
type Threshold struct {
	Min    int
	Status domain.DayStatus
}

// DefaultThresholds соответствуют составу из пяти основных игроков.
var DefaultThresholds = []Threshold{
	{Min: 5, Status: domain.StatusFullRoster},
	{Min: 4, Status: domain.StatusWithSubs},
	{Min: 3, Status: domain.StatusNotEnough},
}

// Service вычисляет вердикт дня по данным расписания.
type Service struct {
	roster     domain.RosterRepo
	schedule   domain.ScheduleRepo
	thresholds []Threshold
	log        zerolog.Logger
}

// NewService создаёт анализатор. Пустой список порогов заменяется
// значениями по умолчанию; пороги сортируются от строгого к мягкому,
// применяется первый подходящий.
func NewService(roster domain.RosterRepo, schedule domain.ScheduleRepo, thresholds []Threshold, log zerolog.Logger) *Service {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	sorted := make([]Threshold, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	return &Service{roster: roster, schedule: schedule, thresholds: sorted, log: log}
}

// VerdictFor загружает данные дня и строит вердикт.
func (s *Service) VerdictFor(ctx context.Context, date time.Time) (domain.DayVerdict, error) {
	start := time.Now()
	members, err := s.roster.ListMembers(ctx)
	if err != nil {
		return domain.DayVerdict{}, fmt.Errorf("состав: %w", err)
	}
	entries, err := s.schedule.ListDay(ctx, date)
	if err != nil {
		return domain.DayVerdict{}, fmt.Errorf("доступность за день: %w", err)
	}
	absences, err := s.schedule.ListAbsences(ctx, date)
	if err != nil {
		return domain.DayVerdict{}, fmt.Errorf("отсутствия: %w", err)
	}
	tag, err := s.schedule.DayTag(ctx, date)
	if err != nil {
		return domain.DayVerdict{}, fmt.Errorf("метка дня: %w", err)
	}
	verdict := s.Analyze(date, members, entries, absences, tag)
	metrics.VerdictBuildSeconds.Observe(time.Since(start).Seconds())
	return verdict, nil
}

// Analyze строит вердикт из уже загруженных данных. Времена — наивные
// минуты суток в часовом поясе расписания; конвертацию зон выполняет
// вызывающая сторона.
func (s *Service) Analyze(date time.Time, members []domain.Member, entries []domain.AvailabilityEntry, absences []domain.AbsenceWindow, dayTag string) domain.DayVerdict {
	verdict := domain.DayVerdict{Date: date, Status: domain.StatusUnknown}
	if dayTag == domain.OffDayTag {
		verdict.Status = domain.StatusOffDay
		return verdict
	}

	raw := make(map[int64]string, len(entries))
	for _, e := range entries {
		raw[e.MemberID] = e.Raw
	}
	absent := make(map[int64]bool)
	for _, a := range absences {
		if a.Covers(date) {
			absent[a.MemberID] = true
		}
	}

	ordered := make([]domain.Member, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })

	var windows []interval.Window
	for _, m := range ordered {
		state := s.effectiveState(m, raw[m.ID], absent[m.ID])
		switch state.State {
		case domain.StateAvailable:
			verdict.Available = append(verdict.Available, state)
			windows = append(windows, *state.Window)
			if m.Role.CountsTowardRoster() {
				if m.Role == domain.RoleMain {
					verdict.AvailableMainCount++
				} else {
					verdict.AvailableSubCount++
				}
			}
		case domain.StateNoResponse:
			verdict.NoResponse = append(verdict.NoResponse, state)
		default:
			// ABSENT попадает к недоступным, но сохраняет свой тег.
			verdict.Unavailable = append(verdict.Unavailable, state)
		}
	}

	if common, ok := interval.Intersect(windows); ok {
		verdict.CommonWindow = &common
	}
	verdict.Status = s.classify(verdict.AvailableMainCount + verdict.AvailableSubCount)
	return verdict
}

// effectiveState применяет приоритеты: отсутствие сильнее любого raw,
// включая явно заполненное окно — защита от устаревших данных.
func (s *Service) effectiveState(m domain.Member, raw string, isAbsent bool) domain.MemberDayState {
	state := domain.MemberDayState{Member: m}
	switch {
	case isAbsent:
		state.State = domain.StateAbsent
	case raw == "x":
		state.State = domain.StateUnavailable
	case raw == "":
		state.State = domain.StateNoResponse
	default:
		w, err := interval.ParseWindow(raw)
		if err != nil {
			s.log.Warn().Err(err).Int64("member", m.ID).Str("raw", raw).Msg("не удалось разобрать окно, считаем что ответа нет")
			state.State = domain.StateNoResponse
			return state
		}
		if w.Empty() {
			s.log.Warn().Int64("member", m.ID).Str("raw", raw).Msg("пустое или ночное окно, считаем что ответа нет")
			state.State = domain.StateNoResponse
			return state
		}
		state.State = domain.StateAvailable
		state.Window = &w
	}
	return state
}

// classify выбирает статус по таблице порогов: первый подходящий от
// строгого к мягкому. Ноль доступных всегда означает UNKNOWN — «никто не
// ответил» не равно «все ответили нет».
func (s *Service) classify(available int) domain.DayStatus {
	if available == 0 {
		return domain.StatusUnknown
	}
	for _, t := range s.thresholds {
		if available >= t.Min {
			return t.Status
		}
	}
	// Кто-то ответил, но даже нижний порог не набран.
	return domain.StatusNotEnough
}
