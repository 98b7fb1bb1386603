package util

import "sync"

type SigHandler func(sender any, params ...any)

type Signals struct {
	mu       sync.RWMutex
	handlers map[string][]SigHandler
}

var sigs = NewSignals()

func NewSignals() *Signals {
	return &Signals{handlers: make(map[string][]SigHandler)}
}

// Sig returns the process-wide signal bus.
func Sig() *Signals { return sigs }

func (s *Signals) Connect(event string, handler SigHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], handler)
}

// Emit calls handlers synchronously, in registration order.
func (s *Signals) Emit(event string, sender any, params ...any) {
	s.mu.RLock()
	handlers := append([]SigHandler(nil), s.handlers[event]...)
	s.mu.RUnlock()
	for _, h := range handlers {
		h(sender, params...)
	}
}

func (s *Signals) Clear(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}
