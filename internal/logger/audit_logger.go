// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditLogger records every state-changing pool operation.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogDayOpened logs the opening of a race day.
func (al *AuditLogger) LogDayOpened(date string, races int) {
	al.WithFields(logrus.Fields{
		"date":  date,
		"races": races,
	}).Info("Race day opened")
}

// LogWagerPlaced logs a wager upsert. previous is zero when there was no prior wager.
func (al *AuditLogger) LogWagerPlaced(date, participantID, raceID string, horse, previous int) {
	al.WithFields(logrus.Fields{
		"date":           date,
		"participant_id": participantID,
		"race_id":        raceID,
		"horse":          horse,
		"previous_horse": previous,
	}).Info("Wager recorded")
}

// LogBankerChange logs a banker being set or cleared.
func (al *AuditLogger) LogBankerChange(date, participantID, oldRaceID, newRaceID string) {
	al.WithFields(logrus.Fields{
		"date":           date,
		"participant_id": participantID,
		"old_race_id":    oldRaceID,
		"new_race_id":    newRaceID,
	}).Info("Banker changed")
}

// LogWinnerPosted logs a race result being posted or corrected.
func (al *AuditLogger) LogWinnerPosted(date, raceID string, winner int, correction bool) {
	al.WithFields(logrus.Fields{
		"date":       date,
		"race_id":    raceID,
		"winner":     winner,
		"correction": correction,
	}).Info("Race winner posted")
}

// LogDayCompleted logs the archival of a race day.
func (al *AuditLogger) LogDayCompleted(date string, archiveID uuid.UUID, participants, topScore int, completedAt time.Time) {
	al.WithFields(logrus.Fields{
		"date":         date,
		"archive_id":   archiveID.String(),
		"participants": participants,
		"top_score":    topScore,
		"completed_at": completedAt.Unix(),
	}).Info("Race day completed")
}

// LogCompletionReplayed logs a completion request for a day that was already archived.
func (al *AuditLogger) LogCompletionReplayed(date string) {
	al.WithField("date", date).Warn("Race day already completed, returning archived result")
}

// LogParticipantRegistered logs a new pool member.
func (al *AuditLogger) LogParticipantRegistered(participantID, name string) {
	al.WithFields(logrus.Fields{
		"participant_id": participantID,
		"name":           name,
	}).Info("Participant registered")
}
