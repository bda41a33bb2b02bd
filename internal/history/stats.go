package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/eventlog"
)

// Stats replays the whole event log and renders the leaderboard for a
// since filter ("all", "today", "week" or a date).
func Stats(ctx context.Context, store eventlog.Store, since string, loc *time.Location, logger *zap.SugaredLogger) (string, error) {
	state, err := Load(ctx, store, loc, logger)
	if err != nil {
		return "", err
	}
	return state.StatsText(ParseSince(since, time.Now(), loc)), nil
}

// Load reads every record from the store and replays it
func Load(ctx context.Context, store eventlog.Store, loc *time.Location, logger *zap.SugaredLogger) (*State, error) {
	recs, err := store.Records(ctx)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return Replay(recs, logger, WithLocation(loc)), nil
}
