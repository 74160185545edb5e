package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/model"
	"github.com/bizcomply/compliance-backend/internal/app/repository"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/internal/metrics"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	redislock "github.com/bizcomply/compliance-backend/pkg/redis"
)

const (
	scanLockName    = "expiry-scan"
	recordBatchSize = 500
)

// ExpiryCandidate is a document or compliance record falling due inside the
// lookahead window.
type ExpiryCandidate struct {
	CompanyID    uint               `json:"company_id"`
	SubjectType  model.SubjectType  `json:"subject_type"`
	SubjectID    uint               `json:"subject_id"`
	DueDate      model.Date         `json:"due_date"`
	Title        string             `json:"title"`
	Priority     model.Priority     `json:"priority"`
	DocumentType model.DocumentType `json:"document_type,omitempty"`
}

// ScanReport summarizes a Run.
type ScanReport struct {
	Today         model.Date `json:"today"`
	LookaheadDays int        `json:"lookahead_days"`
	Candidates    int        `json:"candidates"`
	Notified      int        `json:"notified"`
	Suppressed    int        `json:"suppressed"`
	Failed        int        `json:"failed"`
	DurationMS    int64      `json:"duration_ms"`
}

// ExpiryScanner finds what is about to expire. Scan never writes to the
// documents or records it inspects and keeps no cursor, so re-running it
// over an unchanged window yields the same candidates.
type ExpiryScanner interface {
	Scan(lookaheadDays int) ([]ExpiryCandidate, error)
	Run(ctx context.Context, lookaheadDays int) (*ScanReport, error)
	// DefaultLookahead is the configured window for callers that were not
	// given one.
	DefaultLookahead() int
}

// ScannerOptions configures the distributed guard around Run. A nil Locker
// runs unguarded.
type ScannerOptions struct {
	Locker  *redislock.Locker
	LockTTL time.Duration
}

type expiryScanner struct {
	docRepo    repository.DocumentRepository
	recordRepo repository.ComplianceRecordRepository
	notifier   NotificationService
	cal        calendar
	lookahead  int
	locker     *redislock.Locker
	lockTTL    time.Duration
}

func NewExpiryScanner(
	docRepo repository.DocumentRepository,
	recordRepo repository.ComplianceRecordRepository,
	notifier NotificationService,
	policy Policy,
	opts ScannerOptions,
) ExpiryScanner {
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &expiryScanner{
		docRepo:    docRepo,
		recordRepo: recordRepo,
		notifier:   notifier,
		cal:        policy.calendar(),
		lookahead:  policy.lookahead(),
		locker:     opts.Locker,
		lockTTL:    ttl,
	}
}

func (s *expiryScanner) DefaultLookahead() int {
	return s.lookahead
}

func (s *expiryScanner) window(lookaheadDays int) (model.Date, model.Date, int, error) {
	if lookaheadDays < 0 {
		return model.Date{}, model.Date{}, 0, invalid("lookahead_days", "Lookahead days must not be negative")
	}
	today := s.cal.today()
	return today, today.AddDays(lookaheadDays), lookaheadDays, nil
}

// Scan returns active documents expiring in [today, today+lookahead] and
// records whose next due date falls in the same window. Zero scans today only.
func (s *expiryScanner) Scan(lookaheadDays int) ([]ExpiryCandidate, error) {
	from, to, _, err := s.window(lookaheadDays)
	if err != nil {
		return nil, err
	}
	return s.scanWindow(from, to)
}

func (s *expiryScanner) scanWindow(from, to model.Date) ([]ExpiryCandidate, error) {
	docs, err := s.docRepo.FindActiveExpiringBetween(from, to, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	var candidates []ExpiryCandidate
	for _, doc := range docs {
		candidates = append(candidates, ExpiryCandidate{
			CompanyID:    doc.CompanyID,
			SubjectType:  model.SubjectDocument,
			SubjectID:    doc.ID,
			DueDate:      *doc.ExpiryDate,
			Title:        doc.Title,
			Priority:     documentPriority(from, *doc.ExpiryDate),
			DocumentType: doc.Type,
		})
	}

	err = s.recordRepo.FindDueCandidates(from, to, recordBatchSize, func(records []model.ComplianceRecord) error {
		for i := range records {
			record := &records[i]
			due := record.NextDueDate()
			if due.IsZero() || !due.Between(from, to) {
				continue
			}
			candidates = append(candidates, ExpiryCandidate{
				CompanyID:   record.CompanyID,
				SubjectType: model.SubjectCompliance,
				SubjectID:   record.ID,
				DueDate:     due,
				Title:       record.Rule.Title,
				Priority:    record.Rule.Priority,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan compliance records: %w", err)
	}
	return candidates, nil
}

// Run scans and dispatches one event per candidate. Suppressed duplicates
// count as handled.
func (s *expiryScanner) Run(ctx context.Context, lookaheadDays int) (*ScanReport, error) {
	start := time.Now()
	from, to, days, err := s.window(lookaheadDays)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		lock, err := s.locker.Acquire(ctx, scanLockName, s.lockTTL)
		if err != nil {
			if errors.Is(err, redislock.ErrLockHeld) {
				metrics.ScanRuns.WithLabelValues("locked").Inc()
				logger.Warn("Expiry scan skipped, another instance holds the lock")
				return nil, &apperrors.ConflictError{Message: "An expiry scan is already running", Code: apperrors.ComplianceScanRunning}
			}
			metrics.ScanRuns.WithLabelValues("error").Inc()
			return nil, apperrors.NewDependency("redis", err)
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Error("Failed to release scan lock", err)
			}
		}()
	}

	candidates, err := s.scanWindow(from, to)
	if err != nil {
		metrics.ScanRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	report := &ScanReport{Today: from, LookaheadDays: days, Candidates: len(candidates)}
	var failures []error
	for _, c := range candidates {
		metrics.ScanCandidates.WithLabelValues(string(c.SubjectType)).Inc()

		result, err := s.notifier.Dispatch(ctx, candidateEvent(c, from))
		if result != nil {
			report.Notified += len(result.Created)
			report.Suppressed += result.Suppressed
		}
		if err != nil {
			report.Failed++
			failures = append(failures, fmt.Errorf("%s %d: %w", c.SubjectType, c.SubjectID, err))
		}
	}

	elapsed := time.Since(start)
	report.DurationMS = elapsed.Milliseconds()
	metrics.ScanDuration.Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"today":          from.String(),
		"lookahead_days": days,
		"candidates":     report.Candidates,
		"notified":       report.Notified,
		"suppressed":     report.Suppressed,
		"failed":         report.Failed,
	}
	if len(failures) > 0 {
		metrics.ScanRuns.WithLabelValues("partial").Inc()
		err := errors.Join(failures...)
		logger.Error("Expiry scan finished with failures", err, fields)
		return report, err
	}
	metrics.ScanRuns.WithLabelValues("ok").Inc()
	logger.Info("Expiry scan finished", fields)
	return report, nil
}

// documentPriority escalates as the expiry date approaches.
func documentPriority(today, expiry model.Date) model.Priority {
	switch days := today.DaysUntil(expiry); {
	case days <= 7:
		return model.PriorityCritical
	case days <= 14:
		return model.PriorityHigh
	default:
		return model.PriorityMedium
	}
}

func candidateEvent(c ExpiryCandidate, today model.Date) NotificationEvent {
	due := c.DueDate
	daysLeft := today.DaysUntil(due)

	if c.SubjectType == model.SubjectDocument {
		return NotificationEvent{
			CompanyID:   c.CompanyID,
			Type:        model.NotificationTypeDocumentExpiring,
			SubjectType: model.SubjectDocument,
			SubjectID:   c.SubjectID,
			Title:       "Document expiring: " + c.Title,
			Message:     fmt.Sprintf("%s expires on %s (%d days left).", c.Title, due, daysLeft),
			Priority:    c.Priority,
			DueDate:     due.Ptr(),
			Data: map[string]interface{}{
				"title":       c.Title,
				"type":        string(c.DocumentType),
				"expiry_date": due.String(),
			},
		}
	}

	return NotificationEvent{
		CompanyID:   c.CompanyID,
		Type:        model.NotificationTypeComplianceDue,
		SubjectType: model.SubjectCompliance,
		SubjectID:   c.SubjectID,
		Title:       "Compliance due: " + c.Title,
		Message:     fmt.Sprintf("%s is due on %s (%d days left).", c.Title, due, daysLeft),
		Priority:    c.Priority,
		DueDate:     due.Ptr(),
		Data: map[string]interface{}{
			"rule_title": c.Title,
			"due_date":   due.String(),
			"priority":   string(c.Priority),
		},
	}
}
