package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/banker-pool/internal/leaderboard"
	"github.com/yourusername/banker-pool/internal/logger"
)

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) Reconcile(ctx context.Context, repair bool) (*leaderboard.ReconcileReport, error) {
	args := m.Called(ctx, repair)
	report, _ := args.Get(0).(*leaderboard.ReconcileReport)
	return report, args.Error(1)
}

func TestRunAuditNeverRepairs(t *testing.T) {
	auditor := &mockAuditor{}
	report := &leaderboard.ReconcileReport{
		Checked:       2,
		Discrepancies: []leaderboard.Discrepancy{{ParticipantID: "alice", RecordedTotal: 4, ExpectedTotal: 3}},
	}
	auditor.On("Reconcile", mock.Anything, false).Return(report, nil).Once()

	s := NewScheduler(auditor, logger.Discard())
	got, err := s.RunAudit(context.Background())
	require.NoError(t, err)
	assert.Same(t, report, got)
	assert.Same(t, report, s.LastReport())
	auditor.AssertExpectations(t)
}

func TestRunAuditKeepsPreviousReportOnError(t *testing.T) {
	auditor := &mockAuditor{}
	first := &leaderboard.ReconcileReport{Checked: 1}
	auditor.On("Reconcile", mock.Anything, false).Return(first, nil).Once()
	auditor.On("Reconcile", mock.Anything, false).Return(nil, errors.New("store unavailable")).Once()

	s := NewScheduler(auditor, logger.Discard())
	_, err := s.RunAudit(context.Background())
	require.NoError(t, err)
	_, err = s.RunAudit(context.Background())
	assert.Error(t, err)
	assert.Same(t, first, s.LastReport())
}

func TestScheduleValidatesExpression(t *testing.T) {
	s := NewScheduler(&mockAuditor{}, logger.Discard())
	assert.Error(t, s.ScheduleReconciliation("not a cron"))
	assert.Error(t, s.Start(), "nothing scheduled yet")
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&mockAuditor{}, logger.Discard())
	require.NoError(t, s.ScheduleReconciliation("@every 1h"))
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleReconciliation("@every 2h"))
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.GetNextRun(), time.Minute)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}
