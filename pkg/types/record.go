package types

import "time"

// Record is one persisted instance of a Model. Field values hold the Go types
// produced by Field.Coerce.
type Record struct {
	PK        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord returns an empty record with the given primary key.
func NewRecord(pk string) *Record {
	return &Record{PK: pk, Fields: make(map[string]any)}
}

// Get returns the value of a field, or nil when unset.
func (r *Record) Get(name string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// Set assigns a field value.
func (r *Record) Set(name string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[name] = value
}

// Clone returns a copy whose field map and list values are not shared.
func (r *Record) Clone() *Record {
	c := &Record{
		PK:        r.PK,
		Fields:    make(map[string]any, len(r.Fields)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for k, v := range r.Fields {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			v = cp
		}
		c.Fields[k] = v
	}
	return c
}
