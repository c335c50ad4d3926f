// Package results archives summaries of finished games. It never restores
// a room; in-progress games live only in memory.
package results

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("result not found")

// GameResult is what is kept once a game reaches game-ended.
type GameResult struct {
	RoomCode   string         `json:"roomCode"`
	Rounds     int            `json:"rounds"`
	Winners    []string       `json:"winners"`
	TopScore   int            `json:"topScore"`
	Scores     map[string]int `json:"scores"`
	FinishedAt time.Time      `json:"finishedAt"`
}

type Store interface {
	Save(ctx context.Context, r GameResult) error
	// Latest returns the most recent result for a room code, or ErrNotFound.
	Latest(ctx context.Context, roomCode string) (GameResult, error)
	Close() error
}
