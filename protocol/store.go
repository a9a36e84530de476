package protocol

import "context"

// Store persists the protocol State. GetState returns a zero State, never an
// error, when nothing has been saved yet.
type Store interface {
	GetState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, s *State) error
}
