package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/livinlefevreloca/wosync/internal/directory"
	"github.com/livinlefevreloca/wosync/internal/mirrorsync"
	"github.com/livinlefevreloca/wosync/internal/upstream"
	"github.com/livinlefevreloca/wosync/internal/workorder"
)

// fakeUpstream keeps work orders as raw JSON and stores every write back, so
// a second fetch observes the first write.
type fakeUpstream struct {
	mu        sync.Mutex
	records   map[int]string
	fetchErrs map[int]error
	writeErrs map[int]error
	fetches   []int
	writes    []*workorder.Envelope
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		records:   make(map[int]string),
		fetchErrs: make(map[int]error),
		writeErrs: make(map[int]error),
	}
}

func (f *fakeUpstream) FetchWorkOrder(ctx context.Context, id int) (*workorder.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches = append(f.fetches, id)
	if err, ok := f.fetchErrs[id]; ok {
		return nil, err
	}
	raw, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", upstream.ErrNotFound, id)
	}
	return workorder.Decode([]byte(raw))
}

func (f *fakeUpstream) WriteWorkOrder(ctx context.Context, envelope *workorder.Envelope) (*upstream.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes = append(f.writes, envelope)
	if err, ok := f.writeErrs[envelope.ID()]; ok {
		return nil, err
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	f.records[envelope.ID()] = string(b)
	return &upstream.WriteResult{StatusCode: 200}, nil
}

func (f *fakeUpstream) calls() (fetches, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches), len(f.writes)
}

func (f *fakeUpstream) lastWrite() *workorder.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return nil
	}
	return f.writes[len(f.writes)-1]
}

type fakeDirectory struct {
	mu    sync.Mutex
	ids   []int
	err   error
	calls int
}

func (f *fakeDirectory) ActiveFieldWorkerIDs(ctx context.Context) (map[int]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, fmt.Errorf("%w: %v", directory.ErrUnavailable, f.err)
	}
	set := make(map[int]struct{}, len(f.ids))
	for _, id := range f.ids {
		set[id] = struct{}{}
	}
	return set, nil
}

type fakeMirror struct {
	mu       sync.Mutex
	disabled bool
	fail     bool
	calls    int
	ctxErrs  []error
}

func (f *fakeMirror) Enabled() bool { return !f.disabled }

func (f *fakeMirror) TriggerSync(ctx context.Context) mirrorsync.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.fail {
		return mirrorsync.Result{Success: false, StatusCode: 500, Message: "webhook returned status 500", At: time.Now()}
	}
	return mirrorsync.Result{Success: true, StatusCode: 200, Message: "mirror sync triggered", At: time.Now()}
}

func (f *fakeMirror) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
