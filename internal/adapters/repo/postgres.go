package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/metrics"
)

// ErrMemberNotFound возвращается, если участник не числится в составе.
var ErrMemberNotFound = errors.New("участник не найден")

// Postgres реализует репозитории состава и расписания на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.RosterRepo = (*Postgres)(nil)
var _ domain.ScheduleRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// GetMemberByTGID возвращает участника по его Telegram ID.
func (p *Postgres) GetMemberByTGID(ctx context.Context, tgUserID int64) (domain.Member, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, tg_user_id, display_name, role, sort_order, created_at
FROM members
WHERE tg_user_id = $1
`, tgUserID)
	member, err := scanMember(row)
	metrics.ObserveNetworkRequest("postgres", "member_by_tgid", "members", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Member{}, ErrMemberNotFound
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("выборка участника: %w", err)
	}
	return member, nil
}

// ListMembers возвращает состав в порядке сортировки ростера.
func (p *Postgres) ListMembers(ctx context.Context) ([]domain.Member, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, tg_user_id, display_name, role, sort_order, created_at
FROM members
ORDER BY sort_order, id
`)
	metrics.ObserveNetworkRequest("postgres", "list_members", "members", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка состава: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("чтение участника: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func scanMember(row pgx.Row) (domain.Member, error) {
	var (
		m       domain.Member
		rawRole string
	)
	if err := row.Scan(&m.ID, &m.TGUserID, &m.DisplayName, &rawRole, &m.SortOrder, &m.CreatedAt); err != nil {
		return domain.Member{}, err
	}
	m.Role = domain.ParseMemberRole(rawRole)
	return m, nil
}

// ListDay возвращает сырую доступность состава на дату.
func (p *Postgres) ListDay(ctx context.Context, date time.Time) ([]domain.AvailabilityEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT member_id, day, raw
FROM availability
WHERE day = $1
`, date.Format("2006-01-02"))
	metrics.ObserveNetworkRequest("postgres", "list_day", "availability", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка доступности: %w", err)
	}
	defer rows.Close()

	var entries []domain.AvailabilityEntry
	for rows.Next() {
		var e domain.AvailabilityEntry
		if err := rows.Scan(&e.MemberID, &e.Date, &e.Raw); err != nil {
			return nil, fmt.Errorf("чтение доступности: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListAbsences возвращает отсутствия, пересекающие дату.
func (p *Postgres) ListAbsences(ctx context.Context, date time.Time) ([]domain.AbsenceWindow, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	day := date.Format("2006-01-02")
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT member_id, starts_on, ends_on, COALESCE(reason, '')
FROM absences
WHERE starts_on <= $1 AND ends_on >= $1
`, day)
	metrics.ObserveNetworkRequest("postgres", "list_absences", "absences", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка отсутствий: %w", err)
	}
	defer rows.Close()

	var absences []domain.AbsenceWindow
	for rows.Next() {
		var a domain.AbsenceWindow
		if err := rows.Scan(&a.MemberID, &a.From, &a.To, &a.Reason); err != nil {
			return nil, fmt.Errorf("чтение отсутствия: %w", err)
		}
		absences = append(absences, a)
	}
	return absences, rows.Err()
}

// SetRawAvailability сохраняет сырую строку доступности участника на дату.
func (p *Postgres) SetRawAvailability(ctx context.Context, memberID int64, date time.Time, raw string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO availability (member_id, day, raw, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (member_id, day) DO UPDATE SET raw = EXCLUDED.raw, updated_at = now()
`, memberID, date.Format("2006-01-02"), raw)
	metrics.ObserveNetworkRequest("postgres", "set_availability", "availability", start, err)
	if err != nil {
		return fmt.Errorf("сохранение доступности: %w", err)
	}
	return nil
}

// AddAbsence регистрирует окно отсутствия.
func (p *Postgres) AddAbsence(ctx context.Context, absence domain.AbsenceWindow) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO absences (member_id, starts_on, ends_on, reason)
VALUES ($1, $2, $3, NULLIF($4, ''))
`, absence.MemberID, absence.From.Format("2006-01-02"), absence.To.Format("2006-01-02"), absence.Reason)
	metrics.ObserveNetworkRequest("postgres", "add_absence", "absences", start, err)
	if err != nil {
		return fmt.Errorf("сохранение отсутствия: %w", err)
	}
	return nil
}

// DayTag возвращает метку дня; пустая строка — обычный день.
func (p *Postgres) DayTag(ctx context.Context, date time.Time) (string, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	var tag string
	err := p.pool.QueryRow(ctx, `
SELECT tag FROM day_tags WHERE day = $1
`, date.Format("2006-01-02")).Scan(&tag)
	metrics.ObserveNetworkRequest("postgres", "day_tag", "day_tags", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("выборка метки дня: %w", err)
	}
	return tag, nil
}
