package employees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/tamathecxder/randomail"

	"github.com/UnknownOlympus/mnemosyne/internal/lib/logger/sl"
	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	"github.com/UnknownOlympus/mnemosyne/internal/roster"
)

// Import results, used as the result label of the imported items metric.
const (
	resultCreated  = "created"
	resultUpdated  = "updated"
	resultSkipped  = "skipped"
	resultRejected = "rejected"
)

// RosterLoader reads a roster file into unsaved employees.
type RosterLoader func(path string) ([]models.Employee, error)

// EmailGenerator produces placeholder emails for roster entries without a usable one.
type EmailGenerator func() string

type Staff struct {
	log      *slog.Logger
	repo     repository.EmployeeRepoIface
	metrics  *metrics.Metrics
	load     RosterLoader
	newEmail EmailGenerator
}

func NewStaff(log *slog.Logger, repo repository.EmployeeRepoIface, metrics *metrics.Metrics) *Staff {
	return &Staff{
		log:      log,
		repo:     repo,
		metrics:  metrics,
		load:     roster.Load,
		newEmail: func() string { return randomail.GenerateRandomEmail() },
	}
}

func (s *Staff) initLogger(opn string) *slog.Logger {
	return s.log.With(
		slog.String("op", opn),
		slog.String("division", "employee"),
	)
}

// Start imports the roster once, then again every interval until ctx is cancelled.
// A failed periodic run is logged and retried on the next tick.
func (s *Staff) Start(ctx context.Context, path string, interval time.Duration) error {
	const opn = "Employee.Start"
	log := s.initLogger(opn)

	// 1. Catch-up mode
	log.InfoContext(ctx, "Starting catch-up mode", "roster", path)
	if err := s.ImportRoster(ctx, path); err != nil {
		return fmt.Errorf("failed during catch-up process: %w", err)
	}

	// 2. Maintainance mode
	log.InfoContext(ctx, "Starting maintainance mode", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.InfoContext(ctx, "Periodic import triggered.")
			if err := s.ImportRoster(ctx, path); err != nil {
				log.ErrorContext(ctx, "Periodic run failed", sl.Err(err))
			}
		case <-ctx.Done():
			log.InfoContext(ctx, "Service shutting down.")
			return nil
		}
	}
}

// ImportRoster loads the roster at path and brings the store in line with it.
// Entries are matched by email, or by first and last name when they have no valid email.
// An entry rejected by a database constraint is skipped; any other failure aborts the run.
func (s *Staff) ImportRoster(ctx context.Context, path string) (err error) {
	const opn = "Employee.ImportRoster"
	log := s.initLogger(opn)

	startTime := time.Now()
	defer func() {
		s.metrics.RunDuration.Observe(time.Since(startTime).Seconds())
		if err != nil {
			s.metrics.Runs.WithLabelValues("failure").Inc()
			return
		}
		s.metrics.Runs.WithLabelValues("success").Inc()
		s.metrics.LastSuccessfulRun.SetToCurrentTime()
	}()

	employees, err := s.load(path)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	for _, employee := range clearInvalidEmails(ctx, log, employees) {
		result, syncErr := s.syncEmployee(ctx, log, employee)
		if syncErr != nil {
			if errors.Is(syncErr, repository.ErrConstraintViolation) || errors.Is(syncErr, repository.ErrAmbiguousMatch) {
				log.WarnContext(ctx, "Employee rejected, skipped", "fullname", employee.FullName(), sl.Err(syncErr))
				s.metrics.ItemsImported.WithLabelValues(resultRejected).Inc()
				continue
			}
			return fmt.Errorf("failed to import employee '%s': %w", employee.FullName(), syncErr)
		}
		s.metrics.ItemsImported.WithLabelValues(result).Inc()
	}

	log.InfoContext(ctx, "Roster imported", "employees", len(employees))

	return nil
}

func (s *Staff) syncEmployee(ctx context.Context, log *slog.Logger, employee models.Employee) (string, error) {
	if employee.Email == "" {
		return s.syncByNames(ctx, log, employee)
	}

	existing, found, err := s.repo.FindByEmail(ctx, employee.Email)
	if err != nil {
		return "", err
	}
	if !found {
		if _, err = s.repo.Save(ctx, employee); err != nil {
			return "", fmt.Errorf("failed to save new employee: %w", err)
		}
		return resultCreated, nil
	}

	employee.ID = existing.ID
	if existing == employee {
		log.DebugContext(ctx, "employee is existed, skipped", "fullname", employee.FullName())
		return resultSkipped, nil
	}

	if _, err = s.repo.Save(ctx, employee); err != nil {
		return "", fmt.Errorf("failed to update employee: %w", err)
	}
	return resultUpdated, nil
}

// syncByNames handles entries without an email: a stored employee with the same names
// is kept as is, otherwise the entry is created with a placeholder email.
func (s *Staff) syncByNames(ctx context.Context, log *slog.Logger, employee models.Employee) (string, error) {
	_, err := s.repo.FindByNativeSQLNamedParams(ctx, employee.FirstName, employee.LastName)
	if err == nil {
		log.DebugContext(ctx, "employee without email is existed, skipped", "fullname", employee.FullName())
		return resultSkipped, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	employee.Email = s.newEmail()
	s.metrics.EmailsFixed.Inc()
	log.DebugContext(ctx, "Email was not specified, generated placeholder email",
		"fullname", employee.FullName(), "email", employee.Email)

	if _, err = s.repo.Save(ctx, employee); err != nil {
		return "", fmt.Errorf("failed to save new employee: %w", err)
	}
	return resultCreated, nil
}

// clearInvalidEmails blanks emails that do not parse, so those entries are matched by names.
func clearInvalidEmails(ctx context.Context, log *slog.Logger, employees []models.Employee) []models.Employee {
	var invalidCounter int
	cleaned := make([]models.Employee, 0, len(employees))

	for _, employee := range employees {
		if employee.Email != "" && !ValidateEmail(employee.Email) {
			log.InfoContext(ctx, "Employee has invalid email, it will be replaced with temporary random email.",
				"fullname", employee.FullName(), "email", employee.Email,
			)
			employee.Email = ""
			invalidCounter++
		}

		cleaned = append(cleaned, employee)
	}

	if invalidCounter != 0 {
		log.WarnContext(
			ctx, "Number of employees with invalid email addressess. For mode information, enable debug mode",
			"value", invalidCounter)
	}

	return cleaned
}

// ValidateEmail reports whether email is a bare RFC 5322 address.
func ValidateEmail(email string) bool {
	address, err := mail.ParseAddress(email)
	return err == nil && address.Address == email
}
