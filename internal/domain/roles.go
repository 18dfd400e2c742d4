package domain

import "strings"

// MemberRole описывает роль участника в составе.
type MemberRole string

const (
	RoleMain  MemberRole = "MAIN"
	RoleSub   MemberRole = "SUB"
	RoleCoach MemberRole = "COACH"
)

// ParseMemberRole приводит строку из БД к известной роли. Неизвестные
// значения считаются запасными игроками, чтобы не завышать вердикт.
func ParseMemberRole(raw string) MemberRole {
	switch MemberRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleMain:
		return RoleMain
	case RoleCoach:
		return RoleCoach
	default:
		return RoleSub
	}
}

// CountsTowardRoster сообщает, учитывается ли роль при подсчёте доступных.
// Тренер не играет, поэтому в пороги статуса не входит.
func (r MemberRole) CountsTowardRoster() bool {
	return r == RoleMain || r == RoleSub
}
