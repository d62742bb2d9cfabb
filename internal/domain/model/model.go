package model

import (
	"errors"
	"strconv"
)

// ErrNoBody is returned by Exchange.Body when no reader was attached.
var ErrNoBody = errors.New("exchange has no body")

// League is one competition the crawler walks.
type League struct {
	Name         string
	Slug         string
	TournamentID int64
	// SourceName is how the team_statistics source names the league.
	SourceName string
}

// Season identifies the season a league scope runs in.
type Season struct {
	ID   int64
	Name string
}

// Team is a club taken from the standings of a season.
type Team struct {
	ID   int64
	Slug string
	Name string
}

// Key is the identity used for de-duplication.
func (t Team) Key() string { return strconv.FormatInt(t.ID, 10) }

// Player is a squad member discovered on a team page.
type Player struct {
	ID     int64
	Slug   string
	Name   string
	TeamID int64
}

// Key is the identity used for de-duplication across teams.
func (p Player) Key() string { return strconv.FormatInt(p.ID, 10) }
