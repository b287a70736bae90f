package game

type Role string

const (
	RoleQuestioner Role = "QUESTIONER"
	RoleResponder  Role = "RESPONDER"
	RoleVoter      Role = "VOTER"
	RoleSpectator  Role = "SPECTATOR"
)

// TeamLeader elects the team member every client agrees on: earliest
// JoinedAt, ties broken by lexicographic id. Nil for an empty team.
func TeamLeader(roster Roster, team Team) *Player {
	members := roster.JoinOrder(team)
	if len(members) == 0 {
		return nil
	}
	return members[0]
}

// ResolveRole is the pure projection every observer recomputes on each state
// change. It must depend on nothing but the snapshot, since it gates who may
// legally act.
func ResolveRole(rs RoundState, roster Roster, playerID string) Role {
	p, ok := roster[playerID]
	if !ok {
		return RoleSpectator
	}

	if playerID == rs.CurrentPlayer {
		return RoleResponder
	}

	if rs.Phase == PhaseQuestioning &&
		p.TeamID == rs.QuestioningTeam &&
		rs.CurrentQuestion == "" &&
		mayQuestion(rs, roster, p) {
		return RoleQuestioner
	}

	if rs.Phase == PhaseVoting &&
		p.TeamID == rs.QuestioningTeam &&
		playerID != rs.CurrentPlayer {
		return RoleVoter
	}

	return RoleSpectator
}

// mayQuestion: the elected leader asks for the team, except a two-member
// team, where both non-responding members qualify.
func mayQuestion(rs RoundState, roster Roster, p *Player) bool {
	members := roster.JoinOrder(rs.QuestioningTeam)
	if len(members) == 2 {
		return p.ID != rs.CurrentPlayer
	}
	leader := TeamLeader(roster, rs.QuestioningTeam)
	return leader != nil && leader.ID == p.ID
}
