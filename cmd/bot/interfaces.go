package main

import (
	"context"

	"voice-greeter/internal/core/domain"
)

// Sessions is the part of the session manager the process shell needs.
type Sessions interface {
	List() []domain.SessionInfo
	Shutdown()
}

type Publisher interface {
	Publish(ctx context.Context) error
}
