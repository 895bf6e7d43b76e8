package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/travigo/disruptions/pkg/ctdf"
)

// DataManager publishes immutable schedule snapshots to readers. Writers
// are serialised: each update clones the current snapshot, mutates the
// clone and swaps it in.
type DataManager struct {
	current atomic.Pointer[ctdf.Data]
	writer  sync.Mutex
}

func NewDataManager(data *ctdf.Data) *DataManager {
	manager := &DataManager{}
	manager.Load(data)
	return manager
}

// Load installs data as the current snapshot.
func (m *DataManager) Load(data *ctdf.Data) {
	m.current.Store(data)
}

// Swap installs data and returns the snapshot it replaced.
func (m *DataManager) Swap(data *ctdf.Data) *ctdf.Data {
	return m.current.Swap(data)
}

func (m *DataManager) Current() *ctdf.Data {
	return m.current.Load()
}

// Update runs mutate against a clone of the current snapshot and publishes
// the clone. Readers holding the previous snapshot are unaffected.
func (m *DataManager) Update(mutate func(data *ctdf.Data)) *ctdf.Data {
	m.writer.Lock()
	defer m.writer.Unlock()

	next := m.Current().Clone()
	mutate(next)
	m.Swap(next)

	return next
}
