// Package logger provides scoring-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ScoringLogger provides dedicated logging for score computation.
type ScoringLogger struct {
	*logrus.Entry
}

// NewScoringLogger creates a new scoring logger.
func NewScoringLogger(baseLogger *logrus.Logger) *ScoringLogger {
	return &ScoringLogger{
		Entry: baseLogger.WithField("component", "scoring"),
	}
}

// LogIntegrityWarning logs a winner that names no horse in its race.
func (sl *ScoringLogger) LogIntegrityWarning(date, raceID string, winner int) {
	sl.WithFields(logrus.Fields{
		"date":              date,
		"race_id":           raceID,
		"winner":            winner,
		"integrity_warning": true,
	}).Warn("Winner does not match any horse in race, race scores zero")
}

// LogSkippedWager logs a malformed wager entry ignored during scoring.
func (sl *ScoringLogger) LogSkippedWager(date, participantID, raceID, reason string) {
	sl.WithFields(logrus.Fields{
		"date":           date,
		"participant_id": participantID,
		"race_id":        raceID,
		"reason":         reason,
	}).Debug("Skipping wager")
}

// LogRecomputation logs a completed score recomputation.
func (sl *ScoringLogger) LogRecomputation(date string, participants, decidedRaces int, duration time.Duration) {
	sl.WithFields(logrus.Fields{
		"date":          date,
		"participants":  participants,
		"decided_races": decidedRaces,
		"duration_ms":   float64(duration.Microseconds()) / 1000.0,
	}).Info("Scores recomputed")
}

// LogReconciliation logs the outcome of a ledger audit.
func (sl *ScoringLogger) LogReconciliation(checked, discrepancies int, repaired bool) {
	entry := sl.WithFields(logrus.Fields{
		"participants_checked": checked,
		"discrepancies":        discrepancies,
		"repaired":             repaired,
	})
	if discrepancies > 0 {
		entry.Warn("Participant totals disagree with race day index")
		return
	}
	entry.Info("Participant totals reconciled")
}
