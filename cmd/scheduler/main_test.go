package main

import (
	"testing"
	"time"
)

func TestAnnounceDue(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	day := func(h, m int) time.Time {
		return time.Date(2026, time.March, 9, h, m, 0, 0, loc)
	}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"за минуту до срока", day(11, 59), false},
		{"ровно в срок", day(12, 0), true},
		{"опоздавший тик", day(12, 3), true},
		{"вечером того же дня", day(23, 59), true},
		{"утро следующего дня до срока", day(0, 30), false},
	}
	for _, tc := range cases {
		got := announceDue(tc.now, 12, 0)
		if got != tc.want {
			t.Fatalf("%s: announceDue(%v) = %v, ожидали %v", tc.name, tc.now, got, tc.want)
		}
	}
}

func TestAnnounceDueSecondsDoNotBlock(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.March, 9, 12, 0, 42, 0, loc)
	if !announceDue(now, 12, 0) {
		t.Fatalf("тик с ненулевыми секундами не должен пропускать срок")
	}
}
