package logging

import "github.com/ostepan8/agentbus/executor"

// ExecutorUsageAdapter adapts a ProtocolUsageLogger to executor.UsageLogger,
// so the executor package never needs to import logging's entry types.
type ExecutorUsageAdapter struct {
	Logger   ProtocolUsageLogger
	TimeZone string
	UserID   string
	Device   string
	Location string
}

func (a ExecutorUsageAdapter) LogUsage(entry executor.UsageEntry) {
	a.Logger.LogUsage(UsageEntry{
		ProtocolName:  entry.ProtocolName,
		ProtocolID:    entry.ProtocolID,
		Arguments:     entry.Arguments,
		TriggerPhrase: entry.TriggerPhrase,
		MatchedPhrase: entry.MatchedPhrase,
		Success:       entry.Success,
		LatencyMS:     entry.LatencyMS,
		TimeZone:      a.TimeZone,
		UserID:        a.UserID,
		Device:        a.Device,
		Location:      a.Location,
	})
}
