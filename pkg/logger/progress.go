package logger

import (
	"fmt"
	"time"
)

// ProgressTracker logs row progress of a long-running stage. It logs every
// Every rows, or after LogInterval has passed, whichever comes first.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	every       int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	updates     int
}

// ProgressConfig configures progress tracking behavior
type ProgressConfig struct {
	Operation   string        `json:"operation"`
	Total       int64         `json:"total"`
	Every       int64         `json:"every"`
	LogInterval time.Duration `json:"log_interval"`
	Logger      Logger        `json:"-"`
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(config ProgressConfig) *ProgressTracker {
	if config.Logger == nil {
		config.Logger = GetGlobalLogger()
	}
	if config.LogInterval == 0 {
		config.LogInterval = 5 * time.Second
	}
	if config.Every <= 0 {
		config.Every = 1000
	}

	now := time.Now()
	tracker := &ProgressTracker{
		logger:      config.Logger.WithComponent("progress"),
		operation:   config.Operation,
		total:       config.Total,
		every:       config.Every,
		startTime:   now,
		lastLogTime: now,
		logInterval: config.LogInterval,
	}

	tracker.logger.WithFields(Fields{
		"operation": config.Operation,
		"total":     config.Total,
	}).Info("Starting operation")

	return tracker
}

// Increment advances the counter by one row
func (p *ProgressTracker) Increment() {
	p.Add(1)
}

// Add advances the counter by delta rows
func (p *ProgressTracker) Add(delta int64) {
	p.current += delta
	now := time.Now()

	if p.current%p.every == 0 || now.Sub(p.lastLogTime) >= p.logInterval {
		p.logProgress(now)
		p.lastLogTime = now
	}
}

// Complete logs final statistics
func (p *ProgressTracker) Complete() {
	stats := p.GetStats()
	p.logger.WithFields(Fields{
		"operation": p.operation,
		"processed": stats.Current,
		"duration":  stats.Duration.String(),
		"rate":      fmt.Sprintf("%.2f/sec", stats.Rate),
	}).Info("Operation completed")
}

// CompleteWithError logs final statistics with the error that stopped the stage
func (p *ProgressTracker) CompleteWithError(err error) {
	stats := p.GetStats()
	p.logger.WithError(err).WithFields(Fields{
		"operation": p.operation,
		"processed": stats.Current,
		"duration":  stats.Duration.String(),
	}).Error("Operation completed with error")
}

// Updates returns how many progress lines were logged
func (p *ProgressTracker) Updates() int {
	return p.updates
}

// GetStats returns current progress statistics
func (p *ProgressTracker) GetStats() ProgressStats {
	duration := time.Since(p.startTime)
	var rate float64
	if duration.Seconds() > 0 {
		rate = float64(p.current) / duration.Seconds()
	}

	var percentage float64
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100
	}

	return ProgressStats{
		Operation:  p.operation,
		Total:      p.total,
		Current:    p.current,
		Percentage: percentage,
		Duration:   duration,
		Rate:       rate,
	}
}

func (p *ProgressTracker) logProgress(now time.Time) {
	p.updates++

	fields := Fields{
		"operation": p.operation,
		"processed": p.current,
		"elapsed":   now.Sub(p.startTime).Round(time.Millisecond).String(),
	}
	if p.total > 0 {
		fields["total"] = p.total
		fields["percentage"] = fmt.Sprintf("%.1f%%", float64(p.current)/float64(p.total)*100)
	}

	p.logger.WithFields(fields).Info("Progress update")
}

// ProgressStats contains progress statistics
type ProgressStats struct {
	Operation  string        `json:"operation"`
	Total      int64         `json:"total"`
	Current    int64         `json:"current"`
	Percentage float64       `json:"percentage"`
	Duration   time.Duration `json:"duration"`
	Rate       float64       `json:"rate"`
}

// String returns a human-readable representation of the progress
func (ps ProgressStats) String() string {
	if ps.Total > 0 {
		return fmt.Sprintf("%s: %d/%d (%.1f%%)", ps.Operation, ps.Current, ps.Total, ps.Percentage)
	}
	return fmt.Sprintf("%s: %d processed", ps.Operation, ps.Current)
}

// StageLogger logs the start and end of one pipeline stage with its timing
type StageLogger struct {
	logger    Logger
	stage     string
	startTime time.Time
}

// StartStage logs the beginning of a stage
func StartStage(logger Logger, stage string) *StageLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	s := &StageLogger{
		logger:    logger.WithField("stage", stage),
		stage:     stage,
		startTime: time.Now(),
	}
	s.logger.Debug("Stage started")
	return s
}

// Done logs the completed stage with result fields
func (s *StageLogger) Done(fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["duration"] = time.Since(s.startTime).String()
	s.logger.WithFields(fields).Info("Stage completed")
}

// Fail logs the stage failure
func (s *StageLogger) Fail(err error) {
	s.logger.WithError(err).WithField("duration", time.Since(s.startTime).String()).Error("Stage failed")
}
