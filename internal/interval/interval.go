package interval

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrFormat возвращается, если строка не соответствует виду "HH:MM-HH:MM".
var ErrFormat = errors.New("окно должно иметь вид HH:MM-HH:MM")

// ErrRange возвращается, если часы или минуты выходят за пределы суток.
var ErrRange = errors.New("время выходит за пределы 23:59")

var windowRe = regexp.MustCompile(`^(\d{2}):(\d{2})-(\d{2}):(\d{2})$`)

// Window — полуоткрытый интервал минут суток [Start, End).
// Окно с End <= Start синтаксически корректно: ночные и нулевые окна
// отбрасывает вызывающая сторона, а не парсер.
type Window struct {
	Start int
	End   int
}

// ParseWindow разбирает строку "HH:MM-HH:MM" в окно минут суток.
func ParseWindow(s string) (Window, error) {
	m := windowRe.FindStringSubmatch(s)
	if m == nil {
		return Window{}, fmt.Errorf("%q: %w", s, ErrFormat)
	}
	start, err := minuteOfDay(m[1], m[2])
	if err != nil {
		return Window{}, fmt.Errorf("%q: %w", s, err)
	}
	end, err := minuteOfDay(m[3], m[4])
	if err != nil {
		return Window{}, fmt.Errorf("%q: %w", s, err)
	}
	return Window{Start: start, End: end}, nil
}

func minuteOfDay(hh, mm string) (int, error) {
	h := int(hh[0]-'0')*10 + int(hh[1]-'0')
	m := int(mm[0]-'0')*10 + int(mm[1]-'0')
	if h > 23 || m > 59 {
		return 0, ErrRange
	}
	return h*60 + m, nil
}

// String возвращает каноническую запись окна "HH:MM-HH:MM".
func (w Window) String() string {
	return fmt.Sprintf("%s-%s", FormatMinute(w.Start), FormatMinute(w.End))
}

// Empty сообщает, что окно не содержит ни одной минуты.
func (w Window) Empty() bool {
	return w.Start >= w.End
}

// FormatMinute печатает минуту суток как "HH:MM".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Intersect возвращает общее окно набора интервалов: максимум начал и
// минимум концов. Второе значение false означает отсутствие общего окна —
// как для пустого входа, так и для непересекающихся интервалов; различать
// эти случаи должен вызывающий.
func Intersect(windows []Window) (Window, bool) {
	if len(windows) == 0 {
		return Window{}, false
	}
	common := windows[0]
	for _, w := range windows[1:] {
		if w.Start > common.Start {
			common.Start = w.Start
		}
		if w.End < common.End {
			common.End = w.End
		}
	}
	if common.Empty() {
		return Window{}, false
	}
	return common, true
}
