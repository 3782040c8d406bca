package podman

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a testify mock of Runner. Expectations match the argument
// slice, e.g. m.On("Run", mock.Anything, []string{"ps", "--format", "json"}).
type MockRunner struct {
	mock.Mock
}

var _ Runner = (*MockRunner)(nil)

func (m *MockRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	called := m.Called(ctx, args)
	if called.Get(0) == nil {
		return nil, called.Error(1)
	}
	return called.Get(0).([]byte), called.Error(1)
}
