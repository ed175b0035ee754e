package scheduler

import "newsplaces/internal/task/engine"

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg := s.cfg
	running := s.sup != nil
	entries := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	snap := Snapshot{
		Enabled:         cfg.Enabled,
		Running:         running,
		MaxLoopInterval: cfg.MaxLoopInterval,
		Entries:         make([]EntryInfo, 0, len(entries)),
	}
	if snap.MaxLoopInterval <= 0 {
		snap.MaxLoopInterval = defaultMaxLoopInterval
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, s.entryInfo(e))
	}

	if es, ok := s.eng.(interface{ Snapshot() engine.Snapshot }); ok {
		v := es.Snapshot()
		snap.Engine = &v
	}
	return snap
}

func (s *Service) entryInfo(e *entry) EntryInfo {
	st := e.eval.Status()

	s.mu.Lock()
	info := EntryInfo{
		Name:       e.name,
		Schedule:   st,
		Timeout:    e.timeout,
		LastRun:    e.lastRun,
		Due:        e.lastDue,
		NextCheck:  e.nextCheck,
		LastError:  e.lastErr,
		Dispatched: e.dispatched,
	}
	s.mu.Unlock()

	if !info.LastRun.IsZero() {
		info.NextRun = e.eval.Next(info.LastRun)
	}
	return info
}
