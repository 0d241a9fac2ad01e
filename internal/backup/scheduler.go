package backup

import (
	"context"
	"time"
)

// Start launches the backup timer. With OnStartup set, one backup is taken immediately.
// The timer stops when ctx is done or Close is called.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.Interval <= 0 && !m.cfg.OnStartup {
		return
	}
	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	if m.cfg.OnStartup {
		m.tick(ctx)
	}
	if m.cfg.Interval <= 0 {
		return
	}

	m.logger.Info("backup timer started", "interval", m.cfg.Interval, "max_backups", m.cfg.MaxBackups)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick takes a scheduled backup unless another backup or restore is in flight.
// It reports whether a backup ran.
func (m *Manager) tick(ctx context.Context) bool {
	if m.closed.Load() {
		return false
	}
	if !m.opMu.TryLock() {
		operationsTotal.WithLabelValues("backup", "skipped").Inc()
		m.logger.Info("scheduled backup skipped, operation in progress")
		return false
	}
	defer m.opMu.Unlock()

	// A started backup runs to completion even if ctx is cancelled mid-way.
	if _, err := m.backupLocked(context.WithoutCancel(ctx), TriggerParams{Comment: "scheduled"}); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	return true
}

// Close stops the timer and waits for any backup or restore in flight.
func (m *Manager) Close() error {
	m.closed.Store(true)
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
	// Wait out a manual backup or restore; new ones are refused once closed is set.
	m.opMu.Lock()
	m.opMu.Unlock()
	m.logger.Info("backup manager stopped")
	return nil
}
