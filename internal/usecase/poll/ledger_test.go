package poll

import "testing"

func TestToggleIdempotentAdd(t *testing.T) {
	l := NewLedger(2)
	if !l.Toggle(0, 42, true) {
		t.Fatalf("первое добавление должно менять журнал")
	}
	if l.Toggle(0, 42, true) {
		t.Fatalf("повторное добавление не должно менять журнал")
	}
	if l.Count(0) != 1 {
		t.Fatalf("ожидали один голос, получили %d", l.Count(0))
	}
}

func TestToggleRemoveAbsentIsNoop(t *testing.T) {
	l := NewLedger(1)
	if l.Toggle(0, 42, false) {
		t.Fatalf("снятие несуществующего голоса не должно менять журнал")
	}
}

func TestToggleAcrossOptions(t *testing.T) {
	l := NewLedger(3)
	l.Toggle(0, 7, true)
	l.Toggle(2, 7, true)
	if l.Total() != 2 {
		t.Fatalf("один участник может голосовать за несколько вариантов, ожидали 2, получили %d", l.Total())
	}
	l.Toggle(0, 7, false)
	if l.Count(0) != 0 || l.Count(2) != 1 {
		t.Fatalf("снятие голоса с одного варианта не трогает другой")
	}
}

func TestToggleOutOfRange(t *testing.T) {
	l := NewLedger(1)
	if l.Toggle(5, 1, true) || l.Toggle(-1, 1, true) {
		t.Fatalf("индексы вне диапазона игнорируются")
	}
}

func TestSeedCollapsesDuplicates(t *testing.T) {
	l := NewLedger(1)
	l.Seed(0, []int64{1, 2, 2, 3, 1})
	if l.Count(0) != 3 {
		t.Fatalf("ожидали 3 голоса после схлопывания, получили %d", l.Count(0))
	}
	voters := l.Voters(0)
	if len(voters) != 3 || voters[0] != 1 || voters[2] != 3 {
		t.Fatalf("ожидали отсортированный список без дублей, получили %v", voters)
	}
}
