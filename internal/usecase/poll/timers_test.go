package poll

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimersExpireFiresOnce(t *testing.T) {
	var ticks, expires int32
	timers := StartTimers(time.Now().Add(50*time.Millisecond), 10*time.Millisecond,
		func() { atomic.AddInt32(&ticks, 1) },
		func() { atomic.AddInt32(&expires, 1) },
	)
	timers.Wait()
	if got := atomic.LoadInt32(&expires); got != 1 {
		t.Fatalf("onExpire должен сработать ровно один раз, получили %d", got)
	}
	if atomic.LoadInt32(&ticks) == 0 {
		t.Fatalf("ожидали хотя бы один тик до дедлайна")
	}
}

func TestTimersStopIsIdempotent(t *testing.T) {
	var expires int32
	timers := StartTimers(time.Now().Add(time.Hour), time.Minute,
		func() {},
		func() { atomic.AddInt32(&expires, 1) },
	)
	timers.Stop()
	timers.Stop()
	timers.Wait()
	if atomic.LoadInt32(&expires) != 0 {
		t.Fatalf("после остановки onExpire срабатывать не должен")
	}
}
