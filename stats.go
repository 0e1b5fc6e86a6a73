package main

import (
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
)

// PlayerStats aggregates one player's archived games.
type PlayerStats struct {
	Name      string `db:"name"`
	Games     int    `db:"games"`
	Wins      int    `db:"wins"`
	Survived  int    `db:"survived"`
	MafiaPlay int    `db:"mafia_games"`
	MafiaWins int    `db:"mafia_wins"`
}

// GameStats is the -stats report.
type GameStats struct {
	Games     int     `db:"games"`
	MafiaWins int     `db:"mafia_wins"`
	TownWins  int     `db:"town_wins"`
	Draws     int     `db:"draws"`
	AvgDays   float64 `db:"avg_days"`
	Players   []PlayerStats
}

func queryStats(conn *sqlx.DB) (GameStats, error) {
	var s GameStats
	err := conn.Get(&s, `
		SELECT COUNT(*) AS games,
			COALESCE(SUM(winner = 'mafia'), 0) AS mafia_wins,
			COALESCE(SUM(winner = 'town'), 0) AS town_wins,
			COALESCE(SUM(winner = ''), 0) AS draws,
			COALESCE(AVG(days), 0) AS avg_days
		FROM game`)
	if err != nil {
		return s, fmt.Errorf("stats: games: %w", err)
	}
	err = conn.Select(&s.Players, `
		SELECT p.name AS name,
			COUNT(*) AS games,
			COALESCE(SUM(p.team = g.winner), 0) AS wins,
			COALESCE(SUM(p.survived), 0) AS survived,
			COALESCE(SUM(p.team = 'mafia'), 0) AS mafia_games,
			COALESCE(SUM(p.team = 'mafia' AND g.winner = 'mafia'), 0) AS mafia_wins
		FROM game_player p
		JOIN game g ON g.id = p.game_id
		GROUP BY p.name
		ORDER BY wins DESC, p.name`)
	if err != nil {
		return s, fmt.Errorf("stats: players: %w", err)
	}
	return s, nil
}

func printStats(w io.Writer, s GameStats) {
	if s.Games == 0 {
		fmt.Fprintln(w, "No archived games yet.")
		return
	}
	fmt.Fprintf(w, "Games: %d  Mafia wins: %d (%.0f%%)  Town wins: %d (%.0f%%)  Draws: %d  Avg days: %.1f\n\n",
		s.Games, s.MafiaWins, pct(s.MafiaWins, s.Games), s.TownWins, pct(s.TownWins, s.Games), s.Draws, s.AvgDays)
	fmt.Fprintf(w, "%-20s %6s %6s %7s %9s %10s\n", "Player", "Games", "Wins", "Win %", "Survived", "Mafia W/G")
	for _, p := range s.Players {
		fmt.Fprintf(w, "%-20s %6d %6d %6.0f%% %9d %6d/%d\n",
			p.Name, p.Games, p.Wins, pct(p.Wins, p.Games), p.Survived, p.MafiaWins, p.MafiaPlay)
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
