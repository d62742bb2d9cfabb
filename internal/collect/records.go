package collect

import (
	"time"

	"github.com/okian/sofascout/internal/adapters/repository"
	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/domain/payload"
)

// column maps a table column to a field of a statistics object.
type column struct {
	name  string
	field string
}

var teamStatColumns = []column{
	{"goals_scored", "goalsScored"},
	{"goals_conceded", "goalsConceded"},
	{"shots_total", "shots"},
	{"shots_on_target", "shotsOnTarget"},
	{"shots_off_target", "shotsOffTarget"},
	{"blocked_shots", "blockedScoringAttempt"},
	{"corner_kicks", "corners"},
	{"offsides", "offsides"},
	{"total_passes", "totalPasses"},
	{"accurate_passes_pct", "accuratePassesPercentage"},
	{"possession_pct", "averageBallPossession"},
	{"tackles", "tackles"},
	{"interceptions", "interceptions"},
	{"clearances", "clearances"},
	{"yellow_cards", "yellowCards"},
	{"red_cards", "redCards"},
	{"fouls", "fouls"},
	{"matches_played", "matches"},
	{"wins", "wins"},
	{"draws", "draws"},
	{"losses", "losses"},
}

var playerSeasonColumns = []column{
	// matches
	{"appearances", "appearances"},
	{"matches_started", "matchesStarted"},
	{"minutes_played", "minutesPlayed"},
	{"totw_appearances", "totwAppearances"},
	// attacking
	{"goals", "goals"},
	{"expected_goals", "expectedGoals"},
	{"scoring_frequency", "scoringFrequency"},
	{"total_shots", "totalShots"},
	{"shots_on_target", "shotsOnTarget"},
	{"shots_off_target", "shotsOffTarget"},
	{"big_chances_missed", "bigChancesMissed"},
	{"goal_conversion_pct", "goalConversionPercentage"},
	{"free_kick_goals", "freeKickGoal"},
	{"set_piece_conversion", "setPieceConversion"},
	{"goals_from_inside_box", "goalsFromInsideTheBox"},
	{"goals_from_outside_box", "goalsFromOutsideTheBox"},
	{"headed_goals", "headedGoals"},
	{"left_foot_goals", "leftFootGoals"},
	{"right_foot_goals", "rightFootGoals"},
	{"penalty_goals", "penaltyGoals"},
	{"penalty_won", "penaltyWon"},
	{"hit_woodwork", "hitWoodwork"},
	// passing
	{"assists", "assists"},
	{"expected_assists", "expectedAssists"},
	{"touches", "touches"},
	{"big_chances_created", "bigChancesCreated"},
	{"key_passes", "keyPasses"},
	{"accurate_passes", "accuratePasses"},
	{"accurate_passes_pct", "accuratePassesPercentage"},
	{"total_passes", "totalPasses"},
	{"accurate_own_half", "accurateOwnHalfPasses"},
	{"accurate_opposition_half", "accurateOppositionHalfPasses"},
	{"accurate_long_balls", "accurateLongBalls"},
	{"accurate_long_balls_pct", "accurateLongBallsPercentage"},
	{"accurate_crosses", "accurateCrosses"},
	{"accurate_crosses_pct", "accurateCrossesPercentage"},
	{"accurate_chipped_passes", "accurateChippedPasses"},
	// defending
	{"interceptions", "interceptions"},
	{"tackles", "tackles"},
	{"tackles_won_pct", "tacklesWonPercentage"},
	{"possession_won_att_third", "possessionWonAttThird"},
	{"ball_recovery", "ballRecovery"},
	{"dribbled_past", "dribbledPast"},
	{"clearances", "clearances"},
	{"blocked_shots", "blockedShots"},
	{"error_lead_to_shot", "errorLeadToShot"},
	{"error_lead_to_goal", "errorLeadToGoal"},
	{"penalty_committed", "penaltyConceded"},
	// duels and discipline
	{"successful_dribbles", "successfulDribbles"},
	{"successful_dribbles_pct", "successfulDribblesPercentage"},
	{"total_duels_won", "totalDuelsWon"},
	{"total_duels_won_pct", "totalDuelsWonPercentage"},
	{"ground_duels_won", "groundDuelsWon"},
	{"ground_duels_won_pct", "groundDuelsWonPercentage"},
	{"aerial_duels_won", "aerialDuelsWon"},
	{"aerial_duels_won_pct", "aerialDuelsWonPercentage"},
	{"possession_lost", "possessionLost"},
	{"fouls", "fouls"},
	{"was_fouled", "wasFouled"},
	{"offsides", "offsides"},
	{"yellow_cards", "yellowCards"},
	{"yellow_red_cards", "yellowRedCards"},
	{"red_cards", "redCards"},
	{"direct_red_cards", "directRedCards"},
}

func fill(rec repository.Record, cols []column, stats payload.Value) {
	for _, col := range cols {
		rec[col.name] = stats.Get(col.field).Number()
	}
}

func teamStatsRecord(league model.League, season model.Season, team model.Team, body payload.Value) repository.Record {
	rec := repository.Record{
		"team_id":         team.ID,
		"team_name":       team.Name,
		"tournament_id":   league.TournamentID,
		"tournament_name": league.Name,
		"season_id":       season.ID,
		"season_name":     season.Name,
		"raw_data":        body,
	}
	fill(rec, teamStatColumns, body.Get("statistics"))
	return rec
}

func playerSeasonRecord(league model.League, season model.Season, player model.Player, body payload.Value) repository.Record {
	rec := repository.Record{
		"player_id":       player.ID,
		"player_name":     player.Name,
		"tournament_id":   league.TournamentID,
		"tournament_name": league.Name,
		"season_id":       season.ID,
		"season_name":     season.Name,
		"raw_data":        body,
	}
	stats := body.Get("statistics")
	fill(rec, playerSeasonColumns, stats)
	// rating is a decimal column even when the source sends a whole number.
	rec["rating"] = stats.Get("rating").FloatPtr()
	return rec
}

func teamPlayerRecord(p model.Player, href string) repository.Record {
	return repository.Record{
		"player_id":   p.ID,
		"team_id":     p.TeamID,
		"player_name": p.Name,
		"raw_data":    map[string]any{"href": href, "source": "page_links"},
	}
}

// profile is everything read for one player page.
type profile struct {
	next            payload.Value // __NEXT_DATA__ document
	attributes      payload.Value
	characteristics payload.Value
	nationalTeam    payload.Value
	traits          Traits
}

func profileRecord(player model.Player, pr profile) repository.Record {
	props := pr.next.Get("props", "pageProps", "initialProps")
	p := props.Get("player")

	rec := repository.Record{
		"player_id":             player.ID,
		"player_name":           p.Get("name").StringOr(player.Name),
		"primary_position":      p.Get("position").StringPtr(),
		"positions":             orEmpty(pr.characteristics.Get("positions")),
		"height":                p.Get("height").Number(),
		"preferred_foot":        p.Get("preferredFoot").StringPtr(),
		"country_name":          p.Get("country", "name").StringPtr(),
		"current_team_id":       p.Get("team", "id").IntPtr(),
		"current_team_name":     p.Get("team", "name").StringPtr(),
		"market_value":          p.Get("proposedMarketValue").Number(),
		"market_value_currency": p.Get("proposedMarketValueRaw", "currency").StringPtr(),
		"strengths":             pr.traits.Strengths,
		"weaknesses":            pr.traits.Weaknesses,
		"national_team_stats":   nationalTeamSummary(pr.nationalTeam),
		"transfer_history":      transferHistory(props.Get("transfers")),
		"attributes_raw":        pr.attributes.Raw(),
		"raw_profile": map[string]any{
			"player":          orEmptyObject(p),
			"characteristics": pr.characteristics,
		},
	}

	current := currentAttributes(pr.attributes.Get("playerAttributeOverviews"))
	rec["attacking_rating"] = current.Get("attacking").Number()
	rec["creative_rating"] = current.Get("creativity").Number()
	rec["defensive_rating"] = current.Get("defending").Number()
	rec["technical_rating"] = current.Get("technical").Number()
	rec["tactical_rating"] = current.Get("tactical").Number()
	return rec
}

// currentAttributes picks the overview of the current year, or the first one.
func currentAttributes(overviews payload.Value) payload.Value {
	for _, o := range overviews.Array() {
		if shift, ok := o.Get("yearShift").Int(); ok && shift == 0 {
			return o
		}
	}
	return overviews.Index(0)
}

func nationalTeamSummary(v payload.Value) map[string]any {
	nt := v.Get("statistics").Index(0)
	if !nt.Exists() {
		return nil
	}
	return map[string]any{
		"team":           nt.Get("team", "name").Raw(),
		"teamId":         nt.Get("team", "id").Number(),
		"appearances":    nt.Get("appearances").Number(),
		"goals":          nt.Get("goals").Number(),
		"debutTimestamp": nt.Get("debutTimestamp").Number(),
	}
}

func transferHistory(v payload.Value) []map[string]any {
	transfers := v.Array()
	out := make([]map[string]any, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, map[string]any{
			"fromTeam":       t.Get("transferFrom", "name").StringOr(t.Get("fromTeamName").StringOr("")),
			"fromTeamId":     t.Get("transferFrom", "id").Number(),
			"toTeam":         t.Get("transferTo", "name").StringOr(t.Get("toTeamName").StringOr("")),
			"toTeamId":       t.Get("transferTo", "id").Number(),
			"fee":            t.Get("transferFee").Number(),
			"feeDescription": t.Get("transferFeeDescription").Raw(),
			"feeCurrency":    t.Get("transferFeeRaw", "currency").Raw(),
			"type":           t.Get("type").Raw(),
			"dateTimestamp":  t.Get("transferDateTimestamp").Number(),
		})
	}
	return out
}

func orEmpty(v payload.Value) any {
	if v.Exists() {
		return v
	}
	return []any{}
}

func orEmptyObject(v payload.Value) any {
	if v.Exists() {
		return v
	}
	return map[string]any{}
}

func reconciledRecord(row repository.TeamStatRow, season model.Season, body payload.Value, date time.Time) repository.Record {
	return repository.Record{
		"team_id":                row.TeamID,
		"team_name":              row.TeamName,
		"league_name":            row.LeagueName,
		"season":                 season.ID,
		"supabase_original_data": row.Raw,
		"sofascore_data":         body,
		"data_collection_date":   date,
	}
}
