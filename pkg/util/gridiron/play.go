package gridiron

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Compile-time check to ensure Play implements Persistable interface
var _ Persistable = (*Play)(nil)

// Play is a single scrimmage or special-teams play from a SportRadar
// play-by-play feed, with database persistence annotations
type Play struct {
	GameID         string    `json:"gameId" column:"game_id" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	ID             string    `json:"id" column:"id" dbtype:"TEXT NOT NULL" primary:"true"`
	Sequence       float64   `json:"sequence" column:"sequence" dbtype:"REAL"`
	Period         int       `json:"period" column:"period" dbtype:"INTEGER"`
	ClockSeconds   int       `json:"clockSeconds" column:"clock_seconds" dbtype:"INTEGER"`
	Down           int       `json:"down" column:"down" dbtype:"INTEGER"`
	YardsToGo      int       `json:"yardsToGo" column:"yards_to_go" dbtype:"INTEGER"`
	Yardline       int       `json:"yardline" column:"yardline" dbtype:"INTEGER"`
	YardsToEndzone int       `json:"yardsToEndzone" column:"yards_to_endzone" dbtype:"INTEGER"`
	Possession     string    `json:"possession" column:"possession" dbtype:"TEXT" index:"true"`
	HomePoints     int       `json:"homePoints" column:"home_points" dbtype:"INTEGER"`
	AwayPoints     int       `json:"awayPoints" column:"away_points" dbtype:"INTEGER"`
	ScoreDiff      int       `json:"scoreDiff" column:"score_diff" dbtype:"INTEGER"`
	PlayType       string    `json:"playType" column:"play_type" dbtype:"TEXT" index:"true"`
	Description    string    `json:"description" column:"description" dbtype:"TEXT"`
	CreatedAt      time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

// GetTableName returns the table name for plays
func (p *Play) GetTableName() string {
	return "plays"
}

// GetPrimaryKey returns the primary key as a map
func (p *Play) GetPrimaryKey() map[string]any {
	return map[string]any{
		"game_id": p.GameID,
		"id":      p.ID,
	}
}

// BeforeSave is called before saving the play
func (p *Play) BeforeSave() error {
	if p.GameID == "" || p.ID == "" {
		return fmt.Errorf("play must have a game id and a play id")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}

// AfterSave is called after saving the play
func (p *Play) AfterSave() error {
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// Parsing
/////////////////////////////////////////////////////////////////////////

// PlayColumns are the columns produced by PlaysToTable
var PlayColumns = []string{
	"game_id", "id", "sequence", "period", "clock_seconds", "down", "yards_to_go",
	"yardline", "yards_to_endzone", "possession", "home_points", "away_points",
	"score_diff", "play_type",
}

// ParsePlays extracts every play event from a SportRadar play-by-play
// document. Plays appear inside drives (periods[].pbp[].events[]) and,
// for some feeds, directly under periods[].pbp[]. Non-play events such as
// timeouts and period ends are skipped.
func ParsePlays(raw []byte) ([]*Play, error) {
	if err := checkDocument(raw); err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(raw)
	gameID := doc.Get("id").String()
	homeAlias := firstString(doc, "summary.home.alias", "home.alias")

	var plays []*Play
	var perr error
	doc.Get("periods").ForEach(func(_, period gjson.Result) bool {
		number := int(period.Get("number").Int())
		period.Get("pbp").ForEach(func(_, item gjson.Result) bool {
			switch item.Get("type").String() {
			case "drive":
				item.Get("events").ForEach(func(_, ev gjson.Result) bool {
					if ev.Get("type").String() != "play" {
						return true
					}
					p, err := parsePlay(gameID, homeAlias, number, ev)
					if err != nil {
						perr = err
						return false
					}
					plays = append(plays, p)
					return true
				})
			case "play":
				p, err := parsePlay(gameID, homeAlias, number, item)
				if err != nil {
					perr = err
					return false
				}
				plays = append(plays, p)
			}
			return perr == nil
		})
		return perr == nil
	})
	if perr != nil {
		return nil, perr
	}
	return plays, nil
}

// checkDocument rejects bodies that are not play-by-play documents, such as
// the quota messages the API serves with a 200
func checkDocument(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("play-by-play document is not valid JSON")
	}
	if gjson.GetBytes(raw, "id").String() == "" {
		return fmt.Errorf("play-by-play document has no game id")
	}
	return nil
}

func parsePlay(gameID, homeAlias string, period int, ev gjson.Result) (*Play, error) {
	id := ev.Get("id").String()
	if id == "" {
		return nil, fmt.Errorf("play in period %d of game %s has no id", period, gameID)
	}
	clock, err := clockSeconds(firstString(ev, "start_situation.clock", "clock"))
	if err != nil {
		return nil, fmt.Errorf("play %s: %w", id, err)
	}

	start := ev.Get("start_situation")
	possession := start.Get("possession.alias").String()
	side := start.Get("location.alias").String()
	yardline := int(start.Get("location.yardline").Int())

	p := &Play{
		GameID:       gameID,
		ID:           id,
		Sequence:     ev.Get("sequence").Float(),
		Period:       period,
		ClockSeconds: clock,
		Down:         int(start.Get("down").Int()),
		YardsToGo:    int(start.Get("yfd").Int()),
		Yardline:     yardline,
		Possession:   possession,
		HomePoints:   int(ev.Get("home_points").Int()),
		AwayPoints:   int(ev.Get("away_points").Int()),
		PlayType:     ev.Get("play_type").String(),
		Description:  ev.Get("description").String(),
	}

	// yardline counts from the goal line of the side named by location.alias
	p.YardsToEndzone = yardline
	if side != "" && side == possession {
		p.YardsToEndzone = 100 - yardline
	}

	p.ScoreDiff = p.AwayPoints - p.HomePoints
	if homeAlias != "" && possession == homeAlias {
		p.ScoreDiff = p.HomePoints - p.AwayPoints
	}
	return p, nil
}

// clockSeconds turns a "MM:SS" game clock into seconds left in the period
func clockSeconds(clock string) (int, error) {
	if clock == "" {
		return 0, nil
	}
	mm, ss, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q", clock)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	s, err := strconv.Atoi(ss)
	if err != nil || s < 0 || s > 59 {
		return 0, fmt.Errorf("invalid clock %q", clock)
	}
	return m*60 + s, nil
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// PlaysToTable lays plays out as a Table with PlayColumns
func PlaysToTable(plays []*Play) *Table {
	rows := make([]map[string]any, len(plays))
	for i, p := range plays {
		rows[i] = map[string]any{
			"game_id":          p.GameID,
			"id":               p.ID,
			"sequence":         p.Sequence,
			"period":           p.Period,
			"clock_seconds":    p.ClockSeconds,
			"down":             p.Down,
			"yards_to_go":      p.YardsToGo,
			"yardline":         p.Yardline,
			"yards_to_endzone": p.YardsToEndzone,
			"possession":       p.Possession,
			"home_points":      p.HomePoints,
			"away_points":      p.AwayPoints,
			"score_diff":       p.ScoreDiff,
			"play_type":        p.PlayType,
		}
	}
	// every row uses exactly PlayColumns, so this cannot fail
	t, _ := NewTable(PlayColumns, rows)
	return t
}
