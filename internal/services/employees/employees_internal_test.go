package employees

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"github.com/UnknownOlympus/mnemosyne/internal/repository"
	mocks "github.com/UnknownOlympus/mnemosyne/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const placeholderEmail = "placeholder@example.com"

func newTestStaff(t *testing.T, roster []models.Employee) (*Staff, *mocks.EmployeeRepoIface, *metrics.Metrics) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mockRepo := mocks.NewEmployeeRepoIface(t)
	testMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	staff := NewStaff(logger, mockRepo, testMetrics)
	staff.load = func(string) ([]models.Employee, error) { return roster, nil }
	staff.newEmail = func() string { return placeholderEmail }

	return staff, mockRepo, testMetrics
}

func TestImportRoster(t *testing.T) {
	t.Parallel()

	gyuno := models.NewEmployee("gyuno", "lee", "gyuno@gmail.com")

	t.Run("should save a new employee", func(t *testing.T) {
		t.Parallel()
		staff, mockRepo, testMetrics := newTestStaff(t, []models.Employee{gyuno})

		mockRepo.On("FindByEmail", mock.Anything, "gyuno@gmail.com").Return(models.Employee{}, false, nil).Once()
		mockRepo.On("Save", mock.Anything, gyuno).Return(models.Employee{ID: 1}, nil).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.ItemsImported.WithLabelValues(resultCreated)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.Runs.WithLabelValues("success")), 0)
	})

	t.Run("should skip an identical existing employee", func(t *testing.T) {
		t.Parallel()
		staff, mockRepo, testMetrics := newTestStaff(t, []models.Employee{gyuno})

		stored := gyuno
		stored.ID = 3
		mockRepo.On("FindByEmail", mock.Anything, "gyuno@gmail.com").Return(stored, true, nil).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.ItemsImported.WithLabelValues(resultSkipped)), 0)
	})

	t.Run("should update an existing employee", func(t *testing.T) {
		t.Parallel()
		staff, mockRepo, testMetrics := newTestStaff(t, []models.Employee{gyuno})

		stored := models.Employee{ID: 2, FirstName: "gyu", LastName: "lee", Email: "gyuno@gmail.com"}
		updated := gyuno
		updated.ID = 2
		mockRepo.On("FindByEmail", mock.Anything, "gyuno@gmail.com").Return(stored, true, nil).Once()
		mockRepo.On("Save", mock.Anything, updated).Return(updated, nil).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.ItemsImported.WithLabelValues(resultUpdated)), 0)
	})

	t.Run("should create employee without email with a placeholder", func(t *testing.T) {
		t.Parallel()
		james := models.NewEmployee("james", "kim", "not-an-email")
		staff, mockRepo, testMetrics := newTestStaff(t, []models.Employee{james})

		withPlaceholder := models.NewEmployee("james", "kim", placeholderEmail)
		mockRepo.On("FindByNativeSQLNamedParams", mock.Anything, "james", "kim").
			Return(models.Employee{}, repository.ErrNotFound).Once()
		mockRepo.On("Save", mock.Anything, withPlaceholder).Return(models.Employee{ID: 5}, nil).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.EmailsFixed), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.ItemsImported.WithLabelValues(resultCreated)), 0)
	})

	t.Run("should keep a stored employee without email", func(t *testing.T) {
		t.Parallel()
		staff, mockRepo, testMetrics := newTestStaff(t, []models.Employee{models.NewEmployee("james", "kim", "")})

		mockRepo.On("FindByNativeSQLNamedParams", mock.Anything, "james", "kim").
			Return(models.Employee{ID: 9, FirstName: "james", LastName: "kim", Email: "james@gmail.com"}, nil).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.NoError(t, err)
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.InDelta(t, 0, testutil.ToFloat64(testMetrics.EmailsFixed), 0)
	})

	t.Run("should skip rejected entries and continue", func(t *testing.T) {
		t.Parallel()
		james := models.NewEmployee("james", "kim", "james@gmail.com")
		staff, mockRepo, testMetrics := newTestStaff(t, []models.Employee{gyuno, james})

		mockRepo.On("FindByEmail", mock.Anything, "gyuno@gmail.com").Return(models.Employee{}, false, nil).Once()
		mockRepo.On("Save", mock.Anything, gyuno).
			Return(models.Employee{}, &repository.ConstraintError{Code: "23505"}).Once()
		mockRepo.On("FindByEmail", mock.Anything, "james@gmail.com").Return(models.Employee{}, false, nil).Once()
		mockRepo.On("Save", mock.Anything, james).Return(models.Employee{ID: 2}, nil).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.ItemsImported.WithLabelValues(resultRejected)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.ItemsImported.WithLabelValues(resultCreated)), 0)
	})

	t.Run("should return error when failed to save employee", func(t *testing.T) {
		t.Parallel()
		staff, mockRepo, testMetrics := newTestStaff(t, []models.Employee{gyuno})

		mockRepo.On("FindByEmail", mock.Anything, "gyuno@gmail.com").Return(models.Employee{}, false, nil).Once()
		mockRepo.On("Save", mock.Anything, gyuno).Return(models.Employee{}, assert.AnError).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to save new employee")
		assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.Runs.WithLabelValues("failure")), 0)
	})

	t.Run("should return error when lookup fails", func(t *testing.T) {
		t.Parallel()
		staff, mockRepo, _ := newTestStaff(t, []models.Employee{gyuno})

		mockRepo.On("FindByEmail", mock.Anything, "gyuno@gmail.com").Return(models.Employee{}, false, assert.AnError).Once()

		err := staff.ImportRoster(t.Context(), "roster.yaml")

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to import employee 'gyuno lee'")
	})
}

func TestImportRoster_LoadError(t *testing.T) {
	t.Parallel()

	staff, _, testMetrics := newTestStaff(t, nil)
	staff.load = func(string) ([]models.Employee, error) { return nil, assert.AnError }

	err := staff.ImportRoster(context.Background(), "roster.yaml")

	require.ErrorIs(t, err, assert.AnError)
	require.ErrorContains(t, err, "failed to load roster")
	assert.InDelta(t, 1, testutil.ToFloat64(testMetrics.Runs.WithLabelValues("failure")), 0)
}

func TestStart_StopsOnCancel(t *testing.T) {
	t.Parallel()

	gyuno := models.NewEmployee("gyuno", "lee", "gyuno@gmail.com")
	staff, mockRepo, _ := newTestStaff(t, []models.Employee{gyuno})
	stored := gyuno
	stored.ID = 1
	mockRepo.On("FindByEmail", mock.Anything, "gyuno@gmail.com").Return(stored, true, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := staff.Start(ctx, "roster.yaml", time.Hour)

	require.NoError(t, err)
	mockRepo.AssertNumberOfCalls(t, "FindByEmail", 1)
}

func TestStart_CatchUpError(t *testing.T) {
	t.Parallel()

	staff, _, _ := newTestStaff(t, nil)
	staff.load = func(string) ([]models.Employee, error) { return nil, assert.AnError }

	err := staff.Start(context.Background(), "roster.yaml", time.Hour)

	require.ErrorIs(t, err, assert.AnError)
	require.ErrorContains(t, err, "failed during catch-up process")
}

func TestClearInvalidEmails(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	input := []models.Employee{
		models.NewEmployee("gyuno", "lee", "gyuno@gmail.com"),
		models.NewEmployee("james", "kim", "12345"),
		models.NewEmployee("ram", "park", ""),
	}

	cleaned := clearInvalidEmails(context.Background(), logger, input)

	assert.Equal(t, "gyuno@gmail.com", cleaned[0].Email)
	assert.Empty(t, cleaned[1].Email)
	assert.Empty(t, cleaned[2].Email)
	assert.Equal(t, "12345", input[1].Email)
}
