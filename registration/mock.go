package registration

import (
	"context"
	"github.com/stretchr/testify/mock"
)

// PlayerStoreMock mocks PlayerStore.
type PlayerStoreMock struct {
	mock.Mock
}

// PlayersByNationalID calls mock.Mock.
func (m *PlayerStoreMock) PlayersByNationalID(ctx context.Context, nationalID string) ([]Player, error) {
	args := m.Called(ctx, nationalID)
	var players []Player
	if p := args.Get(0); p != nil {
		players = p.([]Player)
	}
	return players, args.Error(1)
}

// CreatePlayer calls mock.Mock.
func (m *PlayerStoreMock) CreatePlayer(ctx context.Context, player Player) (Player, error) {
	args := m.Called(ctx, player)
	return args.Get(0).(Player), args.Error(1)
}
