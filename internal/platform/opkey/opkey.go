// Package opkey builds canonical operation keys for in-flight fetch
// tracking. Two logically identical requests always produce the same key;
// keys for different entity kinds never collide because every key starts
// with its kind segment.
package opkey

import "strconv"

const sep = "-"

// Team identifies the summary fetch for one tracked team.
func Team(teamID, leagueID int64) string {
	return "team" + sep + strconv.FormatInt(teamID, 10) + sep + strconv.FormatInt(leagueID, 10)
}

// TeamPrefix is the segment-bounded prefix shared by the team operation and
// every match/player operation scoped to it. Meant for Registry.CancelPrefix.
func TeamPrefix(teamID, leagueID int64) string {
	return Team(teamID, leagueID)
}

// TeamMatch identifies the processing of one match on behalf of one team.
func TeamMatch(teamID, leagueID, matchID int64) string {
	return Team(teamID, leagueID) + sep + "match" + sep + strconv.FormatInt(matchID, 10)
}

// TeamPlayer identifies the fetch of one player on behalf of one team.
func TeamPlayer(teamID, leagueID, accountID int64) string {
	return Team(teamID, leagueID) + sep + "player" + sep + strconv.FormatInt(accountID, 10)
}

// Match identifies the shared fetch of one match entity, independent of any
// team. Used to join concurrent fetches, not to supersede them.
func Match(matchID int64) string {
	return "match" + sep + strconv.FormatInt(matchID, 10)
}

// Player identifies the shared fetch of one player entity.
func Player(accountID int64) string {
	return "player" + sep + strconv.FormatInt(accountID, 10)
}
