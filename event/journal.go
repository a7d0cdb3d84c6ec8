// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrJournalClosed is returned when delivering to a closed journal
var ErrJournalClosed = errors.New("event journal closed")

type journalEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// Journal is a Subscriber that appends every event it receives to a writer as
// one JSON document per line. A single Journal may be registered for several
// event types
type Journal struct {
	w      io.Writer
	enc    *json.Encoder
	mu     sync.Mutex
	closed bool
}

func NewJournal(w io.Writer) *Journal {
	return &Journal{
		w:   w,
		enc: json.NewEncoder(w),
	}
}

func (j *Journal) Deliver(evt Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrJournalClosed
	}
	return j.enc.Encode(
		journalEntry{
			Type:      evt.Type,
			Timestamp: evt.Timestamp.UTC(),
			Data:      evt.Data,
		},
	)
}

// Close stops the journal. The underlying writer is closed when it
// implements io.Closer
func (j *Journal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.closed = true
	if c, ok := j.w.(io.Closer); ok {
		_ = c.Close()
	}
}

// Attach registers the journal for each of the given event types
func (j *Journal) Attach(bus *EventBus, eventTypes ...EventType) {
	for _, eventType := range eventTypes {
		bus.RegisterSubscriber(eventType, j)
	}
}
