package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/updater"
)

// fakeService stands in for the upstream API and the mirror webhook.
type fakeService struct {
	mu      sync.Mutex
	records map[string]string
	puts    []map[string]any

	upstream    *httptest.Server
	webhook     *httptest.Server
	webhookHits atomic.Int32
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()

	f := &fakeService{
		records: map[string]string{
			"56335": `{"Id":56335,"CustomId":"21393-23","StatusId":1,"FieldWorkerId":7,"Description":"Contract services","LocationId":812,"CreatedDate":"/Date(1700000000000)/"}`,
			"56336": `{"Id":56336,"CustomId":"21396-10","StatusId":1,"FieldWorkerId":99,"Description":"Filter change"}`,
		},
	}

	f.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Token") != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/ApiService.svc/Settings/CompanyInfo":
			io.WriteString(w, `{"Name":"Acme"}`)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/ApiService.svc/WorkOrder/"):
			// Unknown ids answer 200 with an empty body
			io.WriteString(w, f.records[strings.TrimPrefix(r.URL.Path, "/ApiService.svc/WorkOrder/")])
		case r.Method == http.MethodPut && r.URL.Path == "/ApiService.svc/WorkOrder":
			body, _ := io.ReadAll(r.Body)
			var payload map[string]any
			if err := json.Unmarshal(body, &payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.puts = append(f.puts, payload)
			f.records[fmt.Sprint(payload["Id"])] = string(body)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.upstream.Close)

	f.webhook = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.webhookHits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(f.webhook.Close)

	return f
}

func (f *fakeService) writes() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.puts))
	copy(out, f.puts)
	return out
}

const testSeed = `
field_workers:
  - id: 1
    name: Dispatch Pool
  - id: 7
    name: Sarah Wilson
  - id: 99
    name: Former Tech
    active: false
statuses:
  - id: 1
    description: Incomplete - Scheduled
  - id: 2
    description: Complete - To Billing
    is_complete: true
work_orders:
  - id: 56335
    custom_id: 21393-23
  - id: 56336
    custom_id: 21396-10
`

// testHarness writes a config pointing at the fakes and a seeded mirror.
type testHarness struct {
	dir        string
	configPath string
	service    *fakeService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{dir: t.TempDir(), service: newFakeService(t)}
	h.configPath = filepath.Join(h.dir, "wosync.toml")

	config := fmt.Sprintf(`
[database]
dsn = %q

[upstream]
base_url = "%s/ApiService.svc"
token = "test-token"
server_name = "acme"

[updater]
fallback_field_worker_id = 1
batch_delay = "1ms"

[mirror_sync]
endpoint = "%s/webhook/refresh"

[logging]
level = "error"
`, filepath.Join(h.dir, "mirror.db"), h.service.upstream.URL, h.service.webhook.URL)
	require.NoError(t, os.WriteFile(h.configPath, []byte(config), 0644))

	seedPath := h.writeFile(t, "seed.yaml", testSeed)
	out, err := h.run(t, "init-db", "--seed", seedPath)
	require.NoError(t, err, out)
	require.Contains(t, out, "3 field workers, 2 statuses, 2 work orders seeded")

	return h
}

func (h *testHarness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (h *testHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", h.configPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestFieldWorkersCommand(t *testing.T) {
	h := newTestHarness(t)

	out, err := h.run(t, "field-workers", "--format", "json")
	require.NoError(t, err)

	var workers []db.FieldWorker
	require.NoError(t, json.Unmarshal([]byte(out), &workers))
	require.Len(t, workers, 2)
	assert.Equal(t, "Dispatch Pool", workers[0].FullName)
	assert.Equal(t, "Sarah Wilson", workers[1].FullName)

	out, err = h.run(t, "field-workers")
	require.NoError(t, err)
	assert.Contains(t, out, "Sarah Wilson")
	assert.NotContains(t, out, "Former Tech")
}

func TestFieldWorkersCommand_All(t *testing.T) {
	h := newTestHarness(t)

	out, err := h.run(t, "field-workers", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Sarah Wilson")
	assert.Contains(t, out, "Former Tech (inactive)")

	out, err = h.run(t, "field-workers", "--all", "--format", "json")
	require.NoError(t, err)
	var workers []db.FieldWorker
	require.NoError(t, json.Unmarshal([]byte(out), &workers))
	assert.Len(t, workers, 3)
}

func TestBatchInput_Delay(t *testing.T) {
	h := &testHarness{dir: t.TempDir()}
	zeroFile := h.writeFile(t, "zero.yaml", "delay: 0s\nitems:\n  - id: 1\n    status_id: 2\n")
	bareFile := h.writeFile(t, "bare.yaml", "items:\n  - id: 1\n    status_id: 2\n")

	tests := []struct {
		name     string
		opts     BatchOptions
		delaySet bool
		want     *time.Duration
	}{
		{name: "unset falls back", opts: BatchOptions{Refs: []string{"1"}, Status: "2"}},
		{name: "explicit zero flag", opts: BatchOptions{Refs: []string{"1"}, Status: "2"}, delaySet: true, want: durationPtr(0)},
		{name: "flag value", opts: BatchOptions{Refs: []string{"1"}, Status: "2", Delay: 2 * time.Second}, delaySet: true, want: durationPtr(2 * time.Second)},
		{name: "explicit zero in file", opts: BatchOptions{File: zeroFile}, want: durationPtr(0)},
		{name: "file without delay", opts: BatchOptions{File: bareFile}},
		{name: "flag overrides file", opts: BatchOptions{File: zeroFile, Delay: time.Second}, delaySet: true, want: durationPtr(time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := batchInput(&tt.opts, tt.delaySet)
			require.NoError(t, err)
			assert.Equal(t, tt.want, file.Delay)
		})
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestUpdateCommand_ByCustomID(t *testing.T) {
	h := newTestHarness(t)

	out, err := h.run(t, "update", "21393-23", "2", "--by", "Dana")
	require.NoError(t, err, out)
	assert.Contains(t, out, "work order 56335: status 1 -> 2")

	writes := h.service.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, float64(2), writes[0]["StatusId"])
	assert.Equal(t, float64(7), writes[0]["FieldWorkerId"])
	assert.Equal(t, float64(812), writes[0]["LocationId"])
	assert.NotContains(t, writes[0], "CreatedDate")
	assert.Contains(t, writes[0]["Description"], "(updated by Dana on ")

	assert.Equal(t, int32(1), h.service.webhookHits.Load())
}

func TestUpdateCommand_Reassigns(t *testing.T) {
	h := newTestHarness(t)

	out, err := h.run(t, "update", "56336", "2", "--format", "json", "--no-sync")
	require.NoError(t, err, out)

	var outcome updater.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.True(t, outcome.FieldWorkerReassigned)
	assert.Equal(t, 1, outcome.NewFieldWorkerID)
	assert.False(t, outcome.MirrorSyncTriggered)

	writes := h.service.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "Filter change (reassigned from deactivated FW 99)", writes[0]["Description"])
	assert.Equal(t, int32(0), h.service.webhookHits.Load())
}

func TestUpdateCommand_InvalidStatus(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.run(t, "update", "56335", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, h.service.writes())
}

func TestUpdateCommand_NotFoundUpstream(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.run(t, "update", "777", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
	assert.Empty(t, h.service.writes())
}

func TestUpdateCommand_UnknownCustomID(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.run(t, "update", "00000-00", "2")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBatchCommand_PartialFailure(t *testing.T) {
	h := newTestHarness(t)

	out, err := h.run(t, "batch", "--ids", "56335,777,21396-10", "--status", "2", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 3 items failed")

	var ledger updater.Ledger
	require.NoError(t, json.Unmarshal([]byte(out), &ledger))
	require.Len(t, ledger.Entries, 3)
	assert.True(t, ledger.Entries[0].Success)
	assert.Equal(t, 777, ledger.Entries[1].WorkOrderID)
	assert.Equal(t, updater.KindNotFound, ledger.Entries[1].Kind)
	assert.True(t, ledger.Entries[2].Success)
	assert.Equal(t, 56336, ledger.Entries[2].WorkOrderID)
	require.NotNil(t, ledger.MirrorSync)
	assert.True(t, ledger.MirrorSync.Success)

	assert.Len(t, h.service.writes(), 2)
	assert.Equal(t, int32(1), h.service.webhookHits.Load())
}

func TestBatchCommand_File(t *testing.T) {
	h := newTestHarness(t)
	path := h.writeFile(t, "batch.yaml", `
updated_by: Dana
delay: 1ms
items:
  - id: 56335
    status_id: 2
  - id: 21396-10
    status_id: "2"
`)

	out, err := h.run(t, "batch", "--file", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 succeeded, 0 failed")

	writes := h.service.writes()
	require.Len(t, writes, 2)
	for _, w := range writes {
		assert.Contains(t, w["Description"], "(updated by Dana on ")
	}
	assert.Equal(t, int32(1), h.service.webhookHits.Load())
}

func TestBatchCommand_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no input", args: []string{"batch"}},
		{name: "ids without status", args: []string{"batch", "--ids", "56335"}},
		{name: "unresolvable ref", args: []string{"batch", "--ids", "56335,00000-00", "--status", "2"}},
		{name: "missing file", args: []string{"batch", "--file", "/nonexistent/batch.yaml"}},
		{name: "negative delay", args: []string{"batch", "--ids", "56335", "--status", "2", "--delay=-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t)

			_, err := h.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Empty(t, h.service.writes())
			assert.Equal(t, int32(0), h.service.webhookHits.Load())
		})
	}
}

func TestSyncCommand(t *testing.T) {
	h := newTestHarness(t)

	out, err := h.run(t, "sync", "--format", "json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, int32(1), h.service.webhookHits.Load())
}

func TestCheckCommand(t *testing.T) {
	h := newTestHarness(t)

	out, err := h.run(t, "check", "--format", "json")
	require.NoError(t, err, out)

	var results []checkResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.OK, "%s: %s", r.Name, r.Detail)
	}
	assert.Equal(t, int32(0), h.service.webhookHits.Load())
}

func TestCheckCommand_BadToken(t *testing.T) {
	h := newTestHarness(t)
	t.Setenv("WOSYNC_UPSTREAM_TOKEN", "wrong")

	out, err := h.run(t, "check")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "status 401")
}

func TestMissingConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", "/nonexistent/wosync.toml", "sync"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
