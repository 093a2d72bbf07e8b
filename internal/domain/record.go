package domain

import (
	"fmt"

	"github.com/valyala/fastjson"
)

// Field names the pipeline reads or stamps.
const (
	FieldID         = "id"
	FieldName       = "name"
	FieldTimestamp  = "timestamp"
	FieldIngestedAt = "ingested_at"
	FieldProcessed  = "processed"
)

// ContentTypeJSON is stored on every blob the pipeline writes.
const ContentTypeJSON = "application/json"

// Record is a parsed JSON object. Field order and unknown fields survive a
// parse/Marshal round trip.
type Record struct {
	value *fastjson.Value
	obj   *fastjson.Object
	arena fastjson.Arena
}

// ParseRecord parses payload and requires a JSON object at the top level.
func ParseRecord(payload []byte) (*Record, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("parse record: top-level value is %s, not an object", v.Type())
	}
	return &Record{value: v, obj: obj}, nil
}

// Has reports whether the field is present, whatever its value.
func (r *Record) Has(field string) bool {
	return r.obj.Get(field) != nil
}

// Text returns a string field as-is and any other present value as its JSON
// text. Absent fields return ok=false.
func (r *Record) Text(field string) (string, bool) {
	v := r.obj.Get(field)
	if v == nil {
		return "", false
	}
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes()), true
	}
	return v.String(), true
}

func (r *Record) SetString(field, value string) {
	r.obj.Set(field, r.arena.NewString(value))
}

func (r *Record) SetBool(field string, value bool) {
	if value {
		r.obj.Set(field, r.arena.NewTrue())
		return
	}
	r.obj.Set(field, r.arena.NewFalse())
}

// Object exposes the underlying object to transformations.
func (r *Record) Object() *fastjson.Object {
	return r.obj
}

// Arena allocates values owned by this record.
func (r *Record) Arena() *fastjson.Arena {
	return &r.arena
}

func (r *Record) Marshal() []byte {
	return r.value.MarshalTo(nil)
}

// Transformation mutates a record in place. It is the extension point for
// business transformation logic.
type Transformation func(rec *Record) error

// MarkProcessed sets processed=true.
func MarkProcessed(rec *Record) error {
	rec.SetBool(FieldProcessed, true)
	return nil
}
