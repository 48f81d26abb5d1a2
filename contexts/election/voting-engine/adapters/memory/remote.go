package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/google/uuid"
)

// Remote is an in-memory secondary store, used for development wiring and
// for tests that need to inspect what was mirrored.
type Remote struct {
	mu      sync.RWMutex
	tables  map[string]map[string]map[string]any
	fail    error
	inserts int
}

func NewRemote() *Remote {
	return &Remote{tables: make(map[string]map[string]map[string]any)}
}

// FailWith makes every subsequent call return err; nil restores normal
// behaviour.
func (r *Remote) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *Remote) Insert(_ context.Context, row ports.RemoteRow) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return "", r.fail
	}
	if _, found := r.findLocked(row.Table, row.Key); found {
		return "", fmt.Errorf("remote %s: %w", row.Table, ports.ErrDuplicate)
	}
	id := uuid.NewString()
	fields := make(map[string]any, len(row.Fields)+1)
	for key, value := range row.Fields {
		fields[key] = value
	}
	fields["id"] = id
	if r.tables[row.Table] == nil {
		r.tables[row.Table] = make(map[string]map[string]any)
	}
	r.tables[row.Table][id] = fields
	r.inserts++
	return id, nil
}

func (r *Remote) Update(_ context.Context, table string, remoteID string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	row, ok := r.tables[table][remoteID]
	if !ok {
		return ports.ErrRemoteRowMissing
	}
	for key, value := range fields {
		row[key] = value
	}
	return nil
}

func (r *Remote) FindID(_ context.Context, table string, key map[string]any) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.fail != nil {
		return "", false, r.fail
	}
	id, found := r.findLocked(table, key)
	return id, found, nil
}

func (r *Remote) Delete(_ context.Context, table string, remoteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if _, ok := r.tables[table][remoteID]; !ok {
		return ports.ErrRemoteRowMissing
	}
	delete(r.tables[table], remoteID)
	return nil
}

// Rows returns a copy of every row in table keyed by remote id.
func (r *Remote) Rows(table string) map[string]map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]map[string]any, len(r.tables[table]))
	for id, row := range r.tables[table] {
		copied := make(map[string]any, len(row))
		for key, value := range row {
			copied[key] = value
		}
		out[id] = copied
	}
	return out
}

func (r *Remote) Inserts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inserts
}

func (r *Remote) findLocked(table string, key map[string]any) (string, bool) {
	for id, row := range r.tables[table] {
		matched := true
		for column, value := range key {
			if fmt.Sprint(row[column]) != fmt.Sprint(value) {
				matched = false
				break
			}
		}
		if matched && len(key) > 0 {
			return id, true
		}
	}
	return "", false
}

var _ ports.MirrorRemote = (*Remote)(nil)
