package workorder

import (
	"encoding/json"
	"errors"
	"testing"
)

const sampleWorkOrder = `{
	"Id": 56335,
	"CustomId": "21393-23",
	"Description": "Contract services 4 weeks",
	"StatusId": 1,
	"FieldWorkerId": 7,
	"LocationId": 812,
	"StartDate": "/Date(1766671200000)/",
	"CreateDate": "/Date(1700000000000)/",
	"LastChangeDate": "/Date(1700000500000)/",
	"InvoicingMemo": null,
	"IsNotificationsDisable": false,
	"Extra": {"nested": [1, 2, 3]}
}`

func TestDecode(t *testing.T) {
	wo, err := Decode([]byte(sampleWorkOrder))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wo.ID != 56335 {
		t.Errorf("expected id 56335, got %d", wo.ID)
	}
	if wo.CustomID != "21393-23" {
		t.Errorf("expected custom id 21393-23, got %q", wo.CustomID)
	}
	if wo.StatusID != 1 {
		t.Errorf("expected status 1, got %d", wo.StatusID)
	}
	if wo.FieldWorkerID == nil || *wo.FieldWorkerID != 7 {
		t.Errorf("expected field worker 7, got %v", wo.FieldWorkerID)
	}
	if wo.Description != "Contract services 4 weeks" {
		t.Errorf("unexpected description %q", wo.Description)
	}
	if len(wo.Fields()) != 12 {
		t.Errorf("expected 12 fields, got %d: %v", len(wo.Fields()), wo.Fields())
	}
}

func TestDecode_FieldWorkerAbsentOrNull(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "absent", payload: `{"Id": 1, "StatusId": 1}`},
		{name: "null", payload: `{"Id": 1, "StatusId": 1, "FieldWorkerId": null}`},
		{name: "empty string", payload: `{"Id": 1, "StatusId": 1, "FieldWorkerId": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wo, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wo.FieldWorkerID != nil {
				t.Errorf("expected nil field worker, got %d", *wo.FieldWorkerID)
			}
		})
	}
}

func TestDecode_NumericStrings(t *testing.T) {
	wo, err := Decode([]byte(`{"Id": "42", "StatusId": "3", "FieldWorkerId": "12"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wo.ID != 42 || wo.StatusID != 3 || wo.FieldWorkerID == nil || *wo.FieldWorkerID != 12 {
		t.Errorf("unexpected decode: id=%d status=%d fw=%v", wo.ID, wo.StatusID, wo.FieldWorkerID)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `<html>oops</html>`},
		{name: "array", payload: `[1,2,3]`},
		{name: "missing id", payload: `{"StatusId": 1}`},
		{name: "null id", payload: `{"Id": null}`},
		{name: "text id", payload: `{"Id": "abc"}`},
		{name: "text status", payload: `{"Id": 1, "StatusId": "open"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestEnvelope_PreservesEveryField(t *testing.T) {
	wo, err := Decode([]byte(sampleWorkOrder))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := wo.Envelope()
	env.SetStatusID(2)
	env.SetFieldWorkerID(1)
	env.SetDescription("changed")
	env.Strip(DefaultServerOwnedFields...)

	serverOwned := map[string]bool{}
	for _, f := range DefaultServerOwnedFields {
		serverOwned[f] = true
	}

	for _, name := range wo.Fields() {
		if serverOwned[name] {
			if env.Has(name) {
				t.Errorf("server-owned field %s should be stripped", name)
			}
			continue
		}
		if !env.Has(name) {
			t.Errorf("field %s dropped from envelope", name)
		}
	}

	// Untouched fields keep their exact bytes.
	for _, name := range []string{"StartDate", "LocationId", "InvoicingMemo", "Extra", "CustomId"} {
		want, _ := wo.Raw(name)
		got, _ := env.Raw(name)
		if string(want) != string(got) {
			t.Errorf("field %s changed: want %s, got %s", name, want, got)
		}
	}

	if env.StatusID() != 2 || env.FieldWorkerID() != 1 || env.Description() != "changed" {
		t.Errorf("targeted overwrites not applied: status=%d fw=%d desc=%q",
			env.StatusID(), env.FieldWorkerID(), env.Description())
	}
}

func TestEnvelope_DoesNotAliasRecord(t *testing.T) {
	wo, err := Decode([]byte(sampleWorkOrder))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := wo.Envelope()
	env.SetStatusID(44)
	env.Strip("StartDate")

	raw, _ := wo.Raw(FieldStatusID)
	if string(raw) != "1" {
		t.Errorf("record mutated through envelope: StatusId=%s", raw)
	}
	if _, ok := wo.Raw("StartDate"); !ok {
		t.Error("record lost StartDate after envelope strip")
	}
}

func TestEnvelope_MarshalJSON(t *testing.T) {
	wo, err := Decode([]byte(`{"Id": 9, "StatusId": 1, "Description": "a \"quoted\" note"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	env := wo.Envelope()
	env.SetStatusID(5)

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("envelope is not valid json: %v", err)
	}
	if decoded["StatusId"] != float64(5) {
		t.Errorf("expected StatusId 5, got %v", decoded["StatusId"])
	}
	if decoded["Description"] != `a "quoted" note` {
		t.Errorf("unexpected description %v", decoded["Description"])
	}
	if env.ID() != 9 {
		t.Errorf("expected envelope id 9, got %d", env.ID())
	}
}

func TestAppendAnnotation(t *testing.T) {
	tests := []struct {
		name        string
		description string
		annotation  string
		want        string
		changed     bool
	}{
		{
			name:        "empty description",
			description: "",
			annotation:  "(updated by kim on 2026-10-17)",
			want:        "(updated by kim on 2026-10-17)",
			changed:     true,
		},
		{
			name:        "appends with a space",
			description: "Contract services",
			annotation:  "(reassigned from deactivated FW 99)",
			want:        "Contract services (reassigned from deactivated FW 99)",
			changed:     true,
		},
		{
			name:        "trailing whitespace trimmed",
			description: "Contract services  \n",
			annotation:  "(x)",
			want:        "Contract services (x)",
			changed:     true,
		},
		{
			name:        "already present",
			description: "Contract services (reassigned from deactivated FW 99)",
			annotation:  "(reassigned from deactivated FW 99)",
			want:        "Contract services (reassigned from deactivated FW 99)",
			changed:     false,
		},
		{
			name:        "empty annotation",
			description: "Contract services",
			annotation:  "",
			want:        "Contract services",
			changed:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := AppendAnnotation(tt.description, tt.annotation)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if changed != tt.changed {
				t.Errorf("expected changed=%v, got %v", tt.changed, changed)
			}
		})
	}
}

func TestAppendAnnotation_Idempotent(t *testing.T) {
	desc := "Contract services"
	annotation := "(updated by kim on 2026-10-17)"

	once, _ := AppendAnnotation(desc, annotation)
	twice, changed := AppendAnnotation(once, annotation)

	if changed {
		t.Error("second append should not change the description")
	}
	if once != twice {
		t.Errorf("expected %q, got %q", once, twice)
	}
}
