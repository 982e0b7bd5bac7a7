package agents

import (
	"fmt"
	"time"

	"autoposter/internal/config"
)

// PostingWindow is the daily span in which published posts are scheduled.
type PostingWindow struct {
	Location    *time.Location
	StartMinute int
	EndMinute   int
}

// WindowFromConfig resolves the publishing section into a PostingWindow.
func WindowFromConfig(cfg *config.Config) (PostingWindow, error) {
	loc, err := cfg.PostingLocation()
	if err != nil {
		return PostingWindow{}, err
	}
	start, err := config.ParseClock(cfg.Publishing.WindowStart)
	if err != nil {
		return PostingWindow{}, fmt.Errorf("publishing.window_start: %w", err)
	}
	end, err := config.ParseClock(cfg.Publishing.WindowEnd)
	if err != nil {
		return PostingWindow{}, fmt.Errorf("publishing.window_end: %w", err)
	}
	return PostingWindow{Location: loc, StartMinute: start, EndMinute: end}, nil
}

// Pick returns a uniformly random instant inside the window on now's local
// day, or on the following day once that day's window has closed. int64n
// must return a value in [0, n).
func (w PostingWindow) Pick(now time.Time, int64n func(int64) int64) time.Time {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start, end := w.bounds(local.Year(), local.Month(), local.Day(), loc)
	if local.After(end) {
		next := local.AddDate(0, 0, 1)
		start, end = w.bounds(next.Year(), next.Month(), next.Day(), loc)
	}
	span := end.Sub(start)
	if span <= 0 {
		return start.UTC()
	}
	return start.Add(time.Duration(int64n(int64(span) + 1))).UTC()
}

func (w PostingWindow) bounds(year int, month time.Month, day int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, day, w.StartMinute/60, w.StartMinute%60, 0, 0, loc)
	end := time.Date(year, month, day, w.EndMinute/60, w.EndMinute%60, 0, 0, loc)
	return start, end
}
