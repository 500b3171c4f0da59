package employees

import (
	"strings"

	"staffdesk/internal/domain/auth"
)

// SplitTeams parses the stored comma-separated team list.
func SplitTeams(raw string) []string {
	teams := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		team := strings.TrimSpace(part)
		if team == "" || seen[strings.ToLower(team)] {
			continue
		}
		seen[strings.ToLower(team)] = true
		teams = append(teams, team)
	}
	return teams
}

func JoinTeams(teams []string) string {
	return strings.Join(SplitTeams(strings.Join(teams, ",")), ",")
}

// FilterFields hides leave balances and MFA state from other employees.
func FilterFields(emp *Employee, user auth.UserContext) {
	if user.IsAdmin() || user.UserID == emp.ID {
		return
	}
	emp.TotalAnnualLeave = nil
	emp.RemainingAnnualLeave = nil
	emp.MFAEnabled = false
}
