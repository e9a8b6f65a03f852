package workorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Upstream field names the engine reads or rewrites. Every other field is
// opaque and carried through untouched.
const (
	FieldID            = "Id"
	FieldCustomID      = "CustomId"
	FieldStatusID      = "StatusId"
	FieldFieldWorkerID = "FieldWorkerId"
	FieldDescription   = "Description"
)

// DefaultServerOwnedFields lists the timestamps the upstream service
// regenerates on every write.
var DefaultServerOwnedFields = []string{
	"CreatedDate",
	"CreateDate",
	"LastChangeDate",
	"ModifiedDate",
}

// ErrMalformed is returned when an upstream payload is not a work order.
var ErrMalformed = errors.New("workorder: malformed record")

// WorkOrder is a decoded upstream record. The typed fields are a view over
// the raw field map, which keeps every value exactly as the upstream sent it.
type WorkOrder struct {
	ID            int
	CustomID      string
	StatusID      int
	FieldWorkerID *int // nil when unassigned
	Description   string

	fields map[string]json.RawMessage
}

// Decode parses an upstream work order payload.
func Decode(data []byte) (*WorkOrder, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	raw, ok := fields[FieldID]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, FieldID)
	}
	id, present, err := decodeInt(raw)
	if err != nil || !present {
		return nil, fmt.Errorf("%w: invalid %s %s", ErrMalformed, FieldID, string(raw))
	}

	wo := &WorkOrder{ID: id, fields: fields}

	if raw, ok := fields[FieldStatusID]; ok {
		status, _, err := decodeInt(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s %s", ErrMalformed, FieldStatusID, string(raw))
		}
		wo.StatusID = status
	}

	if raw, ok := fields[FieldFieldWorkerID]; ok {
		fw, present, err := decodeInt(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s %s", ErrMalformed, FieldFieldWorkerID, string(raw))
		}
		if present {
			wo.FieldWorkerID = &fw
		}
	}

	wo.CustomID = decodeString(fields[FieldCustomID])
	wo.Description = decodeString(fields[FieldDescription])

	return wo, nil
}

// Fields returns the names of every field the upstream returned, sorted.
func (w *WorkOrder) Fields() []string {
	return sortedKeys(w.fields)
}

// Raw returns the undecoded value of a field.
func (w *WorkOrder) Raw(name string) (json.RawMessage, bool) {
	v, ok := w.fields[name]
	return v, ok
}

// MarshalJSON renders the record as the upstream returned it.
func (w *WorkOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.fields)
}

// Envelope starts a write payload from a full copy of the record.
func (w *WorkOrder) Envelope() *Envelope {
	fields := make(map[string]json.RawMessage, len(w.fields))
	for k, v := range w.fields {
		fields[k] = v
	}
	return &Envelope{fields: fields}
}

// AppendAnnotation appends an annotation to a description unless the exact
// annotation text is already present. The second return value reports
// whether the description changed.
func AppendAnnotation(description, annotation string) (string, bool) {
	if annotation == "" || strings.Contains(description, annotation) {
		return description, false
	}
	trimmed := strings.TrimRight(description, " \t\r\n")
	if trimmed == "" {
		return annotation, true
	}
	return trimmed + " " + annotation, true
}

// decodeInt accepts JSON numbers and numeric strings. A JSON null reports
// present == false.
func decodeInt(raw json.RawMessage) (value int, present bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false, nil
	}

	var s string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, false, err
		}
		if s == "" {
			return 0, false, nil
		}
	} else {
		s = string(trimmed)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		// Upstream occasionally renders integral values as 12.0
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false, err
		}
		n = int(f)
	}
	return n, true, nil
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
