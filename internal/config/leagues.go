package config

import (
	"strings"

	"github.com/okian/sofascout/internal/domain/model"
)

// League is one configured competition.
type League struct {
	Name         string `koanf:"name"`
	Slug         string `koanf:"slug"`
	TournamentID int64  `koanf:"tournament_id"`
	// SourceName is the league_name used by the team_statistics table when it differs from Name.
	SourceName string `koanf:"source_name"`
}

// Model converts the configured league to the domain type.
func (l League) Model() model.League {
	source := l.SourceName
	if source == "" {
		source = l.Name
	}
	return model.League{Name: l.Name, Slug: l.Slug, TournamentID: l.TournamentID, SourceName: source}
}

// DefaultLeagues returns the five major European leagues and the Champions League.
func DefaultLeagues() []League {
	return []League{
		{Name: "Premier League", Slug: "premier-league", TournamentID: 17},
		{Name: "La Liga", Slug: "laliga", TournamentID: 8},
		{Name: "Bundesliga", Slug: "bundesliga", TournamentID: 35},
		{Name: "Serie A", Slug: "serie-a", TournamentID: 23},
		{Name: "Ligue 1", Slug: "ligue-1", TournamentID: 34},
		{Name: "Champions League", Slug: "uefa-champions-league", TournamentID: 7, SourceName: "UEFA Champions League"},
	}
}

// FindLeague looks a league up by name, slug or source name, ignoring case.
func (c *Config) FindLeague(query string) (League, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return League{}, false
	}
	for _, l := range c.Leagues {
		if strings.ToLower(l.Name) == q || l.Slug == q || strings.ToLower(l.SourceName) == q {
			return l, true
		}
	}
	return League{}, false
}

// LeagueNames lists configured league names in order.
func (c *Config) LeagueNames() []string {
	names := make([]string, len(c.Leagues))
	for i, l := range c.Leagues {
		names[i] = l.Name
	}
	return names
}

// DefaultTeamAliases maps names used by the team_statistics source to the
// names the catalog may carry for the same club.
func DefaultTeamAliases() map[string][]string {
	return map[string][]string{
		// Premier League
		"Newcastle":  {"Newcastle United"},
		"Tottenham":  {"Tottenham Hotspur"},
		"West Ham":   {"West Ham United"},
		"Wolves":     {"Wolverhampton Wanderers", "Wolverhampton"},
		"Brighton":   {"Brighton & Hove Albion", "Brighton and Hove Albion"},
		"Leeds":      {"Leeds United"},
		"Burnley":    {"Burnley FC"},
		"Sunderland": {"Sunderland AFC"},
		// Bundesliga
		"Bayern München":           {"Bayern Munich", "FC Bayern München", "Bayern München"},
		"Borussia Mönchengladbach": {"Borussia Mönchengladbach", "Borussia Monchengladbach"},
		"FSV Mainz 05":             {"1. FSV Mainz 05", "Mainz 05", "Mainz"},
		"Union Berlin":             {"1. FC Union Berlin", "Union Berlin"},
		"1. FC Heidenheim":         {"FC Heidenheim 1846", "FC Heidenheim", "1. FC Heidenheim 1846"},
		"1. FC Köln":               {"1. FC Köln", "FC Köln"},
		"Hamburger SV":             {"Hamburger SV", "HSV"},
		// La Liga
		"Barcelona":       {"FC Barcelona", "Barcelona"},
		"Athletic Club":   {"Athletic Club", "Athletic Bilbao"},
		"Atletico Madrid": {"Atlético de Madrid", "Atlético Madrid", "Club Atletico de Madrid"},
		"Oviedo":          {"Real Oviedo"},
		"Levante":         {"Levante UD"},
		"Elche":           {"Elche CF"},
		// Serie A
		"Inter":      {"Inter", "Internazionale", "FC Internazionale Milano"},
		"Verona":     {"Hellas Verona"},
		"Cremonese":  {"US Cremonese"},
		"Sassuolo":   {"US Sassuolo"},
		"Pisa":       {"AC Pisa 1909", "Pisa Sporting Club"},
		"Como":       {"Como 1907"},
		// Ligue 1
		"Paris Saint Germain": {"Paris Saint-Germain", "PSG"},
		"Marseille":           {"Olympique de Marseille", "Olympique Marseille"},
		"Lyon":                {"Olympique Lyonnais", "Olympique Lyon"},
		"Lens":                {"RC Lens"},
		"Lille":               {"LOSC Lille", "Lille OSC"},
		"Rennes":              {"Stade Rennais FC", "Stade Rennais"},
		"Strasbourg":          {"RC Strasbourg Alsace", "RC Strasbourg"},
		"Nantes":              {"FC Nantes"},
		"Auxerre":             {"AJ Auxerre"},
		"Angers":              {"Angers SCO"},
		"Le Havre":            {"Le Havre AC"},
		"Monaco":              {"AS Monaco"},
		"Nice":                {"OGC Nice"},
		"Toulouse":            {"Toulouse FC"},
		"Stade Brestois 29":   {"Stade Brestois 29", "Brest"},
		"Lorient":             {"FC Lorient"},
		"Metz":                {"FC Metz"},
		"Paris FC":            {"Paris FC"},
		"Montpellier":         {"Montpellier HSC"},
	}
}
