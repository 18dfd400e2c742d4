package training

import (
	"context"
	"errors"
	"testing"
	"time"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/interval"
)

type stubVerdicts struct {
	verdict domain.DayVerdict
}

func (s *stubVerdicts) VerdictFor(context.Context, time.Time) (domain.DayVerdict, error) {
	return s.verdict, nil
}

type capturingCreator struct {
	title   string
	kind    domain.PollKind
	options []domain.PollOption
	created bool
}

func (c *capturingCreator) Create(_ context.Context, title string, kind domain.PollKind, options []domain.PollOption, _ time.Duration) (int64, error) {
	c.title, c.kind, c.options, c.created = title, kind, options, true
	return 42, nil
}

func window(start, end string) *interval.Window {
	s, err := interval.ParseWindow(start + "-" + end)
	if err != nil {
		panic(err)
	}
	return &s
}

func TestBuildOptionsInsideWindow(t *testing.T) {
	svc := NewService(nil, nil, Config{SlotStep: 30 * time.Minute, SlotCount: 3})
	options, err := svc.BuildOptions(domain.DayVerdict{CommonWindow: window("19:00", "21:00")})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("ожидали 3 кандидата, получили %d", len(options))
	}
	want := []string{"19:00", "19:30", "20:00"}
	for i, opt := range options {
		if opt.Label != want[i] {
			t.Fatalf("кандидат %d: ожидали %s, получили %s", i, want[i], opt.Label)
		}
		if opt.Emoji == "" {
			t.Fatalf("у каждого кандидата должен быть эмодзи")
		}
	}
}

func TestBuildOptionsShortWindow(t *testing.T) {
	svc := NewService(nil, nil, Config{SlotStep: 30 * time.Minute, SlotCount: 3})
	options, err := svc.BuildOptions(domain.DayVerdict{CommonWindow: window("19:00", "19:45")})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("кандидаты не должны выходить за окно: получили %d", len(options))
	}
}

func TestBuildOptionsNoWindow(t *testing.T) {
	svc := NewService(nil, nil, Config{})
	if _, err := svc.BuildOptions(domain.DayVerdict{}); !errors.Is(err, ErrNoCommonWindow) {
		t.Fatalf("ожидали ErrNoCommonWindow, получили %v", err)
	}
}

func TestCreatePoll(t *testing.T) {
	creator := &capturingCreator{}
	svc := NewService(&stubVerdicts{verdict: domain.DayVerdict{CommonWindow: window("10:00", "11:30")}}, creator, Config{})
	id, err := svc.CreatePoll(context.Background(), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if id != 42 || !creator.created {
		t.Fatalf("опрос должен быть опубликован")
	}
	if creator.kind != domain.PollTraining {
		t.Fatalf("ожидали TRAINING, получили %s", creator.kind)
	}
	if len(creator.options) != 3 || creator.options[0].DisplayValue != "Начало в 10:00" {
		t.Fatalf("варианты построены неверно: %+v", creator.options)
	}
}

func TestCreatePollWithoutWindow(t *testing.T) {
	creator := &capturingCreator{}
	svc := NewService(&stubVerdicts{}, creator, Config{})
	if _, err := svc.CreatePoll(context.Background(), time.Now()); !errors.Is(err, ErrNoCommonWindow) {
		t.Fatalf("ожидали ErrNoCommonWindow, получили %v", err)
	}
	if creator.created {
		t.Fatalf("без общего окна опрос не создаётся")
	}
}
