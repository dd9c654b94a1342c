// Package sequencer maps a position in a snake draft to the team on the clock.
//
// Odd rounds run slots 1..N, even rounds run N..1. Every caller that needs the
// on-clock team (manual picks, autopicks, replay) goes through this package so
// the computed and stored values cannot drift apart.
package sequencer

import (
	"fmt"
)

// TurnIndex returns the 0-based index into the draft order for a 1-based
// round and pickIndex.
func TurnIndex(round, pickIndex, totalTeams int) int {
	if round%2 == 1 {
		return pickIndex - 1
	}
	return totalTeams - pickIndex
}

// Overall returns the 1-based overall pick number.
func Overall(round, pickIndex, totalTeams int) int {
	return (round-1)*totalTeams + pickIndex
}

// Position is the inverse of Overall.
func Position(overall, totalTeams int) (round, pickIndex int) {
	round = (overall-1)/totalTeams + 1
	pickIndex = (overall-1)%totalTeams + 1
	return round, pickIndex
}

// Advance moves one pick forward, rolling into the next round on overflow.
func Advance(round, pickIndex, totalTeams int) (int, int) {
	if pickIndex >= totalTeams {
		return round + 1, 1
	}
	return round, pickIndex + 1
}

// OnClock returns the team on the clock for round and pickIndex.
func OnClock(order []string, round, pickIndex int) (string, error) {
	n := len(order)
	if n == 0 {
		return "", fmt.Errorf("draft order is empty")
	}
	if round < 1 || pickIndex < 1 || pickIndex > n {
		return "", fmt.Errorf("invalid position round=%d pick=%d for %d teams", round, pickIndex, n)
	}
	return order[TurnIndex(round, pickIndex, n)], nil
}

// RoundOrder returns the on-clock order for a whole round.
func RoundOrder(order []string, round int) []string {
	out := make([]string, 0, len(order))
	for pick := 1; pick <= len(order); pick++ {
		out = append(out, order[TurnIndex(round, pick, len(order))])
	}
	return out
}
