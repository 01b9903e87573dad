package sync

import (
	"context"
	gosync "sync"

	"github.com/zeromicro/go-zero/core/logx"
)

// Manager owns the two background syncers and their lifecycle. Start launches
// both loops; Stop cancels them and waits for a clean exit.
type Manager struct {
	live    *LiveSyncer
	history *HistorySyncer

	mu     gosync.Mutex
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

func NewManager(live *LiveSyncer, history *HistorySyncer) *Manager {
	return &Manager{live: live, history: history}
}

// Start launches the syncer loops. Calling Start on a running manager is a
// no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.live != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.live.Run(runCtx)
		}()
	}
	if m.history != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.history.Run(runCtx)
		}()
	}
	logx.WithContext(ctx).Infof("sync manager: started")
}

// Stop cancels the loops and blocks until both have returned.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	logx.Infof("sync manager: stopped")
}

// IsRunning reports whether any sync cycle is in flight right now. It is
// false between cycles even while the loops themselves are alive.
func (m *Manager) IsRunning() bool {
	if m == nil {
		return false
	}
	return m.live.IsRunning() || m.history.IsRunning()
}

// Live exposes the live syncer, nil when snapshots are not configured.
func (m *Manager) Live() *LiveSyncer {
	if m == nil {
		return nil
	}
	return m.live
}

// History exposes the historical syncer.
func (m *Manager) History() *HistorySyncer {
	if m == nil {
		return nil
	}
	return m.history
}
