package events

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultRetention is how many events an InMemoryEventStore keeps
const DefaultRetention = 1000

// InMemoryEventStore keeps the most recent events for replay. Once the
// retention is reached the oldest event is dropped from both the global
// log and its stream; versions and positions keep counting.
type InMemoryEventStore struct {
	streams     map[string][]Event
	versions    map[string]int
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	position    int
	allEvents   []Event
	retention   int
	pending     sync.WaitGroup
	logger      *zap.Logger
}

type StoreOption func(*InMemoryEventStore)

// WithRetention caps the number of events kept; n < 1 keeps the default
func WithRetention(n int) StoreOption {
	return func(s *InMemoryEventStore) {
		if n > 0 {
			s.retention = n
		}
	}
}

func NewInMemoryEventStore(logger *zap.Logger, opts ...StoreOption) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InMemoryEventStore{
		streams:     make(map[string][]Event),
		versions:    make(map[string]int),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		retention:   DefaultRetention,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ EventStore = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.versions[streamID]++
	eventWithVersion := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: s.versions[streamID],
	}

	s.streams[streamID] = append(s.streams[streamID], eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.position++
	for len(s.allEvents) > s.retention {
		s.dropOldest()
	}

	s.notifySubscribers(eventWithVersion)

	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	idx := fromVersion - events[0].Version()
	if idx < 0 {
		idx = 0
	}
	if idx >= len(events) {
		return []Event{}, nil
	}

	return append([]Event(nil), events[idx:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	// position of the oldest retained event
	first := s.position - len(s.allEvents)
	idx := fromPosition - first
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.allEvents) {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[idx:]...), nil
}

// dropOldest evicts the oldest event; callers hold the lock
func (s *InMemoryEventStore) dropOldest() {
	oldest := s.allEvents[0]
	s.allEvents[0] = nil
	s.allEvents = s.allEvents[1:]

	stream := s.streams[oldest.StreamID()]
	if len(stream) <= 1 {
		delete(s.streams, oldest.StreamID())
		return
	}
	stream[0] = nil
	s.streams[oldest.StreamID()] = stream[1:]
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		newHandlers := make([]EventHandler, 0)
		for _, h := range handlers {
			if h != handler {
				newHandlers = append(newHandlers, h)
			}
		}
		s.subscribers[eventType] = newHandlers
	}

	return nil
}

// Wait blocks until every dispatched handler call has returned
func (s *InMemoryEventStore) Wait() {
	s.pending.Wait()
}

// notifySubscribers dispatches to handlers asynchronously; callers hold the lock
func (s *InMemoryEventStore) notifySubscribers(event Event) {
	for _, handler := range s.subscribers[event.Type()] {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		s.pending.Add(1)
		go func(h EventHandler, e Event) {
			defer s.pending.Done()
			if err := h.Handle(e); err != nil {
				s.logger.Warn("Event handler failed",
					zap.String("type", e.Type()),
					zap.String("stream", e.StreamID()),
					zap.Error(err))
			}
		}(handler, event)
	}
}
