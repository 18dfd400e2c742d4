package poll

import (
	"sync"
	"time"
)

// Timers связывает опрос с настенными часами: периодический тик для
// обновления сообщения и одноразовое срабатывание в момент дедлайна.
// Stop идемпотентен — естественное истечение и административное закрытие
// соревнуются за одну и ту же отмену.
type Timers struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// StartTimers запускает таймеры опроса. onTick вызывается с шагом tick до
// дедлайна, onExpire — ровно один раз в момент дедлайна или позже.
func StartTimers(deadline time.Time, tick time.Duration, onTick func(), onExpire func()) *Timers {
	t := &Timers{stop: make(chan struct{}), done: make(chan struct{})}
	go t.run(deadline, tick, onTick, onExpire)
	return t
}

func (t *Timers) run(deadline time.Time, tick time.Duration, onTick func(), onExpire func()) {
	defer close(t.done)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	expire := time.NewTimer(time.Until(deadline))
	defer expire.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			onTick()
		case <-expire.C:
			onExpire()
			return
		}
	}
}

// Stop останавливает оба таймера. Повторный вызов безопасен.
func (t *Timers) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Wait блокируется до завершения горутины таймеров. Нужен тестам и
// корректному завершению процесса.
func (t *Timers) Wait() {
	<-t.done
}
