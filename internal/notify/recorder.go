package notify

import (
	"context"
	"sync"
)

// Delivery is one recorded Transport call.
type Delivery struct {
	ConnIDs []string
	Event   Event
}

// Recorder is a Transport that keeps every delivery in memory. Err, when
// set, is returned from Deliver after recording.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	Err        error
}

func (r *Recorder) Deliver(_ context.Context, connIDs []string, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{ConnIDs: append([]string(nil), connIDs...), Event: ev})
	return r.Err
}

func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}
