package config

import "sync"

// HistoryCapacity is the fixed FIFO capacity of the dictation history.
const HistoryCapacity = 200

// HistoryEntry is one completed (or failed) dictation session, enough to
// reconstruct what was said, where, and how it ended.
type HistoryEntry struct {
	TimestampUnixMs int64
	AppProcessName  string
	AppExePath      string
	AppWindowTitle  string
	Text            string
	Stage           string
	Error           string
}

// History is the persisted document: a capped FIFO of HistoryEntry.
type History struct {
	Entries []HistoryEntry
}

// HistoryStore appends entries to a capacity-200 FIFO, persisting through
// the same atomic Store machinery as AppConfig.
type HistoryStore struct {
	path string
	mu   sync.Mutex
}

// NewHistoryStore targets path (conventionally "history.json").
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path}
}

// Load reads the persisted history, or an empty History if none exists yet
// (or the primary and ".bak" files are both unreadable).
func (h *HistoryStore) Load() (History, error) {
	hist, err := loadJSON[History](h.path)
	if err != nil {
		bak, bakErr := loadJSON[History](h.path + ".bak")
		if bakErr == nil {
			return bak, nil
		}
		return History{}, nil
	}
	return hist, nil
}

// Append adds entry to the front of history, evicting the oldest once the
// capacity is exceeded, and persists the result.
func (h *HistoryStore) Append(entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hist, err := h.Load()
	if err != nil {
		return err
	}

	hist.Entries = append([]HistoryEntry{entry}, hist.Entries...)
	if len(hist.Entries) > HistoryCapacity {
		hist.Entries = hist.Entries[:HistoryCapacity]
	}

	return saveJSON(h.path, hist)
}
