package workorder

import (
	"encoding/json"
	"strconv"
)

// Envelope is the full payload sent to the upstream write endpoint. The
// upstream overwrites the whole record on write, so an envelope always starts
// from a complete fetched record and only targeted fields are replaced.
type Envelope struct {
	fields map[string]json.RawMessage
}

// ID returns the work order id carried by the envelope.
func (e *Envelope) ID() int {
	id, _, _ := decodeInt(e.fields[FieldID])
	return id
}

// StatusID returns the status currently set on the envelope.
func (e *Envelope) StatusID() int {
	id, _, _ := decodeInt(e.fields[FieldStatusID])
	return id
}

// FieldWorkerID returns the assignee currently set on the envelope, or 0.
func (e *Envelope) FieldWorkerID() int {
	id, _, _ := decodeInt(e.fields[FieldFieldWorkerID])
	return id
}

// Description returns the description currently set on the envelope.
func (e *Envelope) Description() string {
	return decodeString(e.fields[FieldDescription])
}

func (e *Envelope) SetStatusID(id int) {
	e.fields[FieldStatusID] = json.RawMessage(strconv.Itoa(id))
}

func (e *Envelope) SetFieldWorkerID(id int) {
	e.fields[FieldFieldWorkerID] = json.RawMessage(strconv.Itoa(id))
}

func (e *Envelope) SetDescription(description string) {
	// Marshalling a string cannot fail.
	b, _ := json.Marshal(description)
	e.fields[FieldDescription] = b
}

// Strip removes server-owned fields from the envelope.
func (e *Envelope) Strip(names ...string) {
	for _, name := range names {
		delete(e.fields, name)
	}
}

// Has reports whether a field is present.
func (e *Envelope) Has(name string) bool {
	_, ok := e.fields[name]
	return ok
}

// Raw returns the encoded value of a field.
func (e *Envelope) Raw(name string) (json.RawMessage, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Fields returns the sorted field names in the envelope.
func (e *Envelope) Fields() []string {
	return sortedKeys(e.fields)
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.fields)
}
