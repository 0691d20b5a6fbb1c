package core

import "time"

// RunMetrics collects counters for a single combine run.
type RunMetrics struct {
	StaticSources   int
	SkinnedSources  int
	FlatEntries     int
	MaterialGroups  int
	Bakes           int
	Merges          int
	BuffersReleased int
	Duration        time.Duration
}

func (m *RunMetrics) Reset() {
	*m = RunMetrics{}
}

func (m *RunMetrics) Log() {
	LogInfo("combine run: sources=%d static/%d skinned entries=%d groups=%d bakes=%d merges=%d released=%d in %s",
		m.StaticSources, m.SkinnedSources, m.FlatEntries, m.MaterialGroups,
		m.Bakes, m.Merges, m.BuffersReleased, m.Duration)
}
