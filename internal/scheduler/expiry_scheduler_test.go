package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	runs      int
	lookahead int
	err       error
}

func (f *fakeScanner) Scan(lookaheadDays int) ([]service.ExpiryCandidate, error) {
	return nil, nil
}

func (f *fakeScanner) DefaultLookahead() int {
	return 30
}

func (f *fakeScanner) Run(ctx context.Context, lookaheadDays int) (*service.ScanReport, error) {
	f.runs++
	f.lookahead = lookaheadDays
	if f.err != nil {
		return nil, f.err
	}
	return &service.ScanReport{Candidates: 2, Notified: 2}, nil
}

type fakePurger struct {
	calls int
}

func (f *fakePurger) PurgeExpired() (int64, error) {
	f.calls++
	return 3, nil
}

func TestExpiryScheduler_Start(t *testing.T) {
	s := NewExpiryScheduler(&fakeScanner{}, &fakePurger{}, Options{ScanSchedule: "0 6 * * *", LookaheadDays: 30})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 2, s.Entries())
}

func TestExpiryScheduler_StartWithoutPurger(t *testing.T) {
	s := NewExpiryScheduler(&fakeScanner{}, nil, Options{ScanSchedule: "@daily"})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 1, s.Entries())
}

func TestExpiryScheduler_InvalidSchedule(t *testing.T) {
	s := NewExpiryScheduler(&fakeScanner{}, nil, Options{ScanSchedule: "every morning"})
	assert.Error(t, s.Start())
}

func TestExpiryScheduler_Jobs(t *testing.T) {
	scanner := &fakeScanner{}
	purger := &fakePurger{}
	s := NewExpiryScheduler(scanner, purger, Options{ScanSchedule: "@daily", LookaheadDays: 45})

	s.runScan()
	assert.Equal(t, 1, scanner.runs)
	assert.Equal(t, 45, scanner.lookahead)

	scanner.err = apperrors.NewConflict("An expiry scan is already running")
	s.runScan()
	scanner.err = errors.New("database gone")
	s.runScan()
	assert.Equal(t, 3, scanner.runs)

	s.runPurge()
	assert.Equal(t, 1, purger.calls)
}

func TestExpiryScheduler_DefaultLookahead(t *testing.T) {
	scanner := &fakeScanner{}
	s := NewExpiryScheduler(scanner, nil, Options{ScanSchedule: "@daily"})

	s.runScan()
	assert.Equal(t, 30, scanner.lookahead)
}
