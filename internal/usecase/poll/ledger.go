package poll

import "sort"

// Ledger хранит множества проголосовавших по вариантам опроса. Добавление и
// снятие голоса идемпотентны: платформа может повторно доставить одно и то
// же событие реакции при переподключении.
type Ledger struct {
	votes []map[int64]struct{}
}

// NewLedger создаёт журнал на n вариантов.
func NewLedger(n int) *Ledger {
	votes := make([]map[int64]struct{}, n)
	for i := range votes {
		votes[i] = make(map[int64]struct{})
	}
	return &Ledger{votes: votes}
}

// Toggle добавляет или снимает голос. Возвращает true, если журнал
// изменился.
func (l *Ledger) Toggle(option int, voter int64, added bool) bool {
	if option < 0 || option >= len(l.votes) {
		return false
	}
	set := l.votes[option]
	if added {
		if _, ok := set[voter]; ok {
			return false
		}
		set[voter] = struct{}{}
		return true
	}
	if _, ok := set[voter]; !ok {
		return false
	}
	delete(set, voter)
	return true
}

// Seed заполняет вариант списком проголосовавших при восстановлении.
// Дубликаты схлопываются.
func (l *Ledger) Seed(option int, voters []int64) {
	if option < 0 || option >= len(l.votes) {
		return
	}
	for _, v := range voters {
		l.votes[option][v] = struct{}{}
	}
}

// Count возвращает число голосов за вариант.
func (l *Ledger) Count(option int) int {
	if option < 0 || option >= len(l.votes) {
		return 0
	}
	return len(l.votes[option])
}

// Total возвращает сумму голосов по всем вариантам.
func (l *Ledger) Total() int {
	total := 0
	for _, set := range l.votes {
		total += len(set)
	}
	return total
}

// Voters возвращает отсортированный список проголосовавших за вариант.
// История голосов не упорядочена: ничьи разрешаются порядком вариантов,
// не временем голоса.
func (l *Ledger) Voters(option int) []int64 {
	if option < 0 || option >= len(l.votes) {
		return nil
	}
	out := make([]int64, 0, len(l.votes[option]))
	for v := range l.votes[option] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
