package record

import "encoding/json"

// Snapshot is a complete, immutable point-in-time projection of a room's
// records, in store iteration order. It is the unit of persistence and the
// unit of read queries; later writes are only visible in later snapshots.
type Snapshot struct {
	Records []Record
}

type snapshotEnvelope struct {
	Records []json.RawMessage `json:"records"`
}

// MarshalJSON encodes the snapshot as {"records":[...]} preserving order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	env := snapshotEnvelope{Records: make([]json.RawMessage, 0, len(s.Records))}
	for _, r := range s.Records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		env.Records = append(env.Records, data)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes a snapshot produced by MarshalJSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	s.Records = make([]Record, 0, len(env.Records))
	for _, raw := range env.Records {
		rec, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		s.Records = append(s.Records, rec)
	}
	return nil
}

// Pages returns the snapshot's pages in iteration order.
func (s *Snapshot) Pages() []*Page {
	var pages []*Page
	for _, r := range s.Records {
		if p, ok := r.(*Page); ok {
			pages = append(pages, p)
		}
	}
	return pages
}

// Shapes returns the snapshot's shapes in iteration order.
func (s *Snapshot) Shapes() []*Shape {
	var shapes []*Shape
	for _, r := range s.Records {
		if sh, ok := r.(*Shape); ok {
			shapes = append(shapes, sh)
		}
	}
	return shapes
}

// Widgets returns the snapshot's widget shapes in iteration order.
func (s *Snapshot) Widgets() []*Shape {
	var widgets []*Shape
	for _, sh := range s.Shapes() {
		if sh.IsWidget() {
			widgets = append(widgets, sh)
		}
	}
	return widgets
}
