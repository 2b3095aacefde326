// Package position reconstructs the currently relevant trading cycle from a
// symbol's raw fill history and values the open portion of it in quote
// currency. A cycle is one or more buys optionally followed by sells, ending
// either at a full exit or at "still open".
package position

import (
	"github.com/quantary/cryptobot/internal/types"
)

// MatchRecentCycle isolates the most recent trading cycle from the full
// chronological fill history (oldest first): either the still-open position,
// or, when the newest fills form a completed round-trip, that whole
// round-trip.
//
// The scan walks backward from the newest fill. A cycle boundary sits between
// a sell and the buy that chronologically follows it: the sell closed the
// previous cycle, the buy opened the current one. Everything after the
// boundary sell belongs to the returned cycle. Without any such boundary the
// whole history is one cycle.
//
// The result is always a contiguous, newest-biased subsequence of the input,
// in the input's chronological order. It is empty only when the input is
// empty.
func MatchRecentCycle(fills []types.Fill) []types.Fill {
	if len(fills) == 0 {
		return nil
	}

	for j := len(fills) - 2; j >= 0; j-- {
		if fills[j].Side == types.SideSell && fills[j+1].Side == types.SideBuy {
			return fills[j+1:]
		}
	}

	return fills
}
