package employees_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/mnemosyne/internal/metrics"
	"github.com/UnknownOlympus/mnemosyne/internal/services/employees"
	mocks "github.com/UnknownOlympus/mnemosyne/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewStaff(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	mockRepo := new(mocks.EmployeeRepoIface)

	s := employees.NewStaff(logger, mockRepo, metrics.NewMetrics(prometheus.NewRegistry()))

	assert.NotNil(t, s)
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		valid bool
	}{
		{"gyuno@gmail.com", true},
		{"james.kim@example.co.kr", true},
		{"testuser.com", false},
		{"Gyuno Lee <gyuno@gmail.com>", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, employees.ValidateEmail(tt.email), tt.email)
	}
}
