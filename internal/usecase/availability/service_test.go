package availability

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-roster-bot/internal/domain"
)

type stubRepo struct {
	members  []domain.Member
	entries  []domain.AvailabilityEntry
	absences []domain.AbsenceWindow
	tag      string
}

func (s *stubRepo) GetMemberByTGID(context.Context, int64) (domain.Member, error) {
	return domain.Member{}, nil
}
func (s *stubRepo) ListMembers(context.Context) ([]domain.Member, error) { return s.members, nil }
func (s *stubRepo) ListDay(context.Context, time.Time) ([]domain.AvailabilityEntry, error) {
	return s.entries, nil
}
func (s *stubRepo) ListAbsences(context.Context, time.Time) ([]domain.AbsenceWindow, error) {
	return s.absences, nil
}
func (s *stubRepo) SetRawAvailability(context.Context, int64, time.Time, string) error { return nil }
func (s *stubRepo) AddAbsence(context.Context, domain.AbsenceWindow) error             { return nil }
func (s *stubRepo) DayTag(context.Context, time.Time) (string, error)                  { return s.tag, nil }

func mains(n int) []domain.Member {
	var members []domain.Member
	for i := 0; i < n; i++ {
		members = append(members, domain.Member{ID: int64(i + 1), DisplayName: string(rune('A' + i)), Role: domain.RoleMain, SortOrder: i})
	}
	return members
}

func day() time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
}

func newService(repo *stubRepo) *Service {
	return NewService(repo, repo, nil, zerolog.Nop())
}

func TestAnalyzeFullRoster(t *testing.T) {
	repo := &stubRepo{
		members: mains(5),
		entries: []domain.AvailabilityEntry{
			{MemberID: 1, Raw: "09:00-12:00"},
			{MemberID: 2, Raw: "10:00-13:00"},
			{MemberID: 3, Raw: "09:30-11:30"},
			{MemberID: 4, Raw: "08:00-12:00"},
			{MemberID: 5, Raw: "10:00-14:00"},
		},
	}
	verdict, err := newService(repo).VerdictFor(context.Background(), day())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if verdict.Status != domain.StatusFullRoster {
		t.Fatalf("ожидали FULL_ROSTER, получили %s", verdict.Status)
	}
	if verdict.CommonWindow == nil || verdict.CommonWindow.String() != "10:00-11:30" {
		t.Fatalf("ожидали общее окно 10:00-11:30, получили %v", verdict.CommonWindow)
	}
	if verdict.AvailableMainCount != 5 || verdict.AvailableSubCount != 0 {
		t.Fatalf("ожидали 5 основных, получили %d/%d", verdict.AvailableMainCount, verdict.AvailableSubCount)
	}
}

func TestAnalyzeAbsenceOverridesWindow(t *testing.T) {
	repo := &stubRepo{
		members: mains(5),
		entries: []domain.AvailabilityEntry{
			{MemberID: 1, Raw: "09:00-12:00"},
			{MemberID: 2, Raw: "10:00-13:00"},
			{MemberID: 3, Raw: "09:30-11:30"},
			{MemberID: 4, Raw: "08:00-12:00"},
			{MemberID: 5, Raw: "14:00-18:00"},
		},
		absences: []domain.AbsenceWindow{{MemberID: 5, From: day().AddDate(0, 0, -1), To: day().AddDate(0, 0, 2)}},
	}
	verdict, err := newService(repo).VerdictFor(context.Background(), day())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for _, st := range verdict.Available {
		if st.Member.ID == 5 {
			t.Fatalf("отсутствующий участник не должен попадать в доступные")
		}
	}
	found := false
	for _, st := range verdict.Unavailable {
		if st.Member.ID == 5 {
			found = true
			if st.State != domain.StateAbsent {
				t.Fatalf("ожидали тег ABSENT, получили %s", st.State)
			}
		}
	}
	if !found {
		t.Fatalf("отсутствующий участник должен числиться недоступным")
	}
	if verdict.Status != domain.StatusWithSubs {
		t.Fatalf("ожидали WITH_SUBS при четырёх доступных, получили %s", verdict.Status)
	}
}

func TestAnalyzeOffDay(t *testing.T) {
	repo := &stubRepo{members: mains(5), tag: domain.OffDayTag}
	verdict, err := newService(repo).VerdictFor(context.Background(), day())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if verdict.Status != domain.StatusOffDay {
		t.Fatalf("ожидали OFF_DAY, получили %s", verdict.Status)
	}
	if len(verdict.Available)+len(verdict.Unavailable)+len(verdict.NoResponse) != 0 {
		t.Fatalf("в выходной списки должны быть пустыми")
	}
}

func TestAnalyzeNobodyAnsweredIsUnknown(t *testing.T) {
	repo := &stubRepo{members: mains(5)}
	verdict, err := newService(repo).VerdictFor(context.Background(), day())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if verdict.Status != domain.StatusUnknown {
		t.Fatalf("ноль доступных должен давать UNKNOWN, получили %s", verdict.Status)
	}
	if len(verdict.NoResponse) != 5 {
		t.Fatalf("все пятеро должны числиться без ответа")
	}
}

func TestAnalyzeEveryMemberInExactlyOneList(t *testing.T) {
	repo := &stubRepo{
		members: mains(5),
		entries: []domain.AvailabilityEntry{
			{MemberID: 1, Raw: "09:00-12:00"},
			{MemberID: 2, Raw: "x"},
			{MemberID: 3, Raw: "мусор"},
		},
		absences: []domain.AbsenceWindow{{MemberID: 4, From: day(), To: day()}},
	}
	verdict, err := newService(repo).VerdictFor(context.Background(), day())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	total := len(verdict.Available) + len(verdict.Unavailable) + len(verdict.NoResponse)
	if total != len(repo.members) {
		t.Fatalf("каждый участник должен попасть ровно в один список: %d из %d", total, len(repo.members))
	}
	if verdict.AvailableMainCount+verdict.AvailableSubCount > len(repo.members) {
		t.Fatalf("счётчики не могут превышать размер состава")
	}
	// Мусорная строка логируется и считается отсутствием ответа.
	if len(verdict.NoResponse) != 2 {
		t.Fatalf("ожидали двоих без ответа (включая мусорный ввод), получили %d", len(verdict.NoResponse))
	}
}

func TestAnalyzeCoachNotCounted(t *testing.T) {
	members := mains(4)
	members = append(members, domain.Member{ID: 9, DisplayName: "Coach", Role: domain.RoleCoach, SortOrder: 9})
	repo := &stubRepo{
		members: members,
		entries: []domain.AvailabilityEntry{
			{MemberID: 1, Raw: "09:00-12:00"},
			{MemberID: 2, Raw: "09:00-12:00"},
			{MemberID: 3, Raw: "09:00-12:00"},
			{MemberID: 9, Raw: "09:00-12:00"},
		},
	}
	verdict, err := newService(repo).VerdictFor(context.Background(), day())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if verdict.AvailableMainCount != 3 || verdict.AvailableSubCount != 0 {
		t.Fatalf("тренер не должен входить в счётчики: %d/%d", verdict.AvailableMainCount, verdict.AvailableSubCount)
	}
	if verdict.Status != domain.StatusNotEnough {
		t.Fatalf("ожидали NOT_ENOUGH при трёх игроках, получили %s", verdict.Status)
	}
}

func TestAnalyzeBelowAllThresholds(t *testing.T) {
	repo := &stubRepo{
		members: mains(5),
		entries: []domain.AvailabilityEntry{{MemberID: 1, Raw: "09:00-12:00"}},
	}
	verdict, err := newService(repo).VerdictFor(context.Background(), day())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if verdict.Status != domain.StatusNotEnough {
		t.Fatalf("один ответивший — это NOT_ENOUGH, а не UNKNOWN: %s", verdict.Status)
	}
}
