package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/emergency-backend/internal/events"
	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func newEventLog() (*eventLog, events.Dispatcher) {
	log := &eventLog{}
	d := events.NewInMemoryDispatcher(nil)
	for _, t := range events.AllEventTypes {
		d.Subscribe(t, func(_ context.Context, e events.Event) error {
			log.mu.Lock()
			defer log.mu.Unlock()
			log.events = append(log.events, e)
			return nil
		})
	}
	return log, d
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func requireDomainError(t *testing.T, err error, status int) *apperrors.DomainError {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, status, de.HTTPStatus)
	return de
}
