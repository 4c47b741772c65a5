package nightagent

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/ostepan8/agentbus/internal/corekit"
	"github.com/ostepan8/agentbus/message"
	"github.com/ostepan8/agentbus/provider"
)

// LogCleanupAgent deletes log lines older than RetentionDays from one or
// more newline-delimited JSON log files, on a periodic background
// schedule started by StartBackgroundTasks, or once per clean_logs
// request. Each sweep is a
// read-filter-rewrite pass applying a retention cutoff against the
// per-entry timestamp field.
type LogCleanupAgent struct {
	*BaseAgent
	logger        corekit.Logger
	logPaths      []string
	retentionDays int
	interval      time.Duration
}

var _ provider.Provider = (*LogCleanupAgent)(nil)

// NewLogCleanupAgent builds a LogCleanupAgent over the given log file
// paths. interval defaults to 24h when <= 0.
func NewLogCleanupAgent(logPaths []string, retentionDays int, interval time.Duration, logger corekit.Logger) *LogCleanupAgent {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = corekit.NoOpLogger{}
	}
	return &LogCleanupAgent{
		BaseAgent:     NewBaseAgent("LogCleanupAgent"),
		logger:        logger,
		logPaths:      logPaths,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

func (a *LogCleanupAgent) Capabilities() []string { return []string{"clean_logs"} }

// ReceiveMessage handles a direct clean_logs capability_request by running
// one cleanup pass synchronously. The summary is not sent back: no
// capability_response is emitted for the request.
func (a *LogCleanupAgent) ReceiveMessage(ctx context.Context, msg *message.Message) {
	capability, _ := msg.Content["capability"].(string)
	if capability != "clean_logs" {
		return
	}
	a.CleanLogs()
}

// StartBackgroundTasks launches the periodic cleanup loop, running
// CleanLogs every interval until ctx is cancelled or StopBackgroundTasks
// is called. Neither the night-mode controller nor the orchestrator calls
// it; the caller decides when to start it.
func (a *LogCleanupAgent) StartBackgroundTasks(ctx context.Context) {
	a.Spawn(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.CleanLogs()
			}
		}
	})
}

// cleanupResult summarizes one cleanup pass.
type cleanupResult struct {
	DeletedCount int `json:"deleted_count"`
	TotalBefore  int `json:"total_before"`
	TotalAfter   int `json:"total_after"`
}

// CleanLogs rewrites every configured log file, dropping lines whose
// "timestamp" field is older than RetentionDays.
func (a *LogCleanupAgent) CleanLogs() cleanupResult {
	cutoff := time.Now().AddDate(0, 0, -a.retentionDays)
	total := cleanupResult{}

	for _, path := range a.logPaths {
		before, after, err := rewriteKeepingRecent(path, cutoff)
		if err != nil {
			a.logger.Error("log cleanup failed", map[string]interface{}{"path": path, "error": err.Error()})
			continue
		}
		total.TotalBefore += before
		total.TotalAfter += after
		total.DeletedCount += before - after
	}

	a.logger.Info("log cleanup completed", map[string]interface{}{
		"deleted_count": total.DeletedCount,
		"total_after":   total.TotalAfter,
	})
	return total
}

func rewriteKeepingRecent(path string, cutoff time.Time) (before, after int, err error) {
	in, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	defer in.Close()

	var kept [][]byte
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		before++
		line := append([]byte(nil), scanner.Bytes()...)
		var stamped struct {
			Timestamp time.Time `json:"timestamp"`
		}
		if json.Unmarshal(line, &stamped) == nil && stamped.Timestamp.After(cutoff) {
			kept = append(kept, line)
		} else if stamped.Timestamp.IsZero() {
			kept = append(kept, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return before, before, err
	}
	after = len(kept)

	out, err := os.OpenFile(path, os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return before, before, err
	}
	defer out.Close()
	for _, line := range kept {
		out.Write(append(line, '\n'))
	}
	return before, after, nil
}
