package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"tweetsync/pkg/logger"
)

const ledgerVersion = 1

// keyNamespace scopes natural keys so they never collide with other UUIDv5s
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tweetsync/rows"))

// NaturalKey identifies a row by its timestamp and content
func NaturalKey(ts time.Time, content string) string {
	return uuid.NewSHA1(keyNamespace, []byte(ts.UTC().Format(time.RFC3339Nano)+"|"+content)).String()
}

// Ledger is the set of rows confirmed inserted, grouped by record set
type Ledger struct {
	Version   int                   `json:"version"`
	Files     map[string]*FileEntry `json:"files"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// FileEntry tracks one record set
type FileEntry struct {
	// Keys maps natural key to the time the remote store accepted it.
	Keys     map[string]time.Time `json:"keys"`
	LastSync time.Time            `json:"last_sync"`
}

// NewLedger returns an empty ledger
func NewLedger() *Ledger {
	return &Ledger{Version: ledgerVersion, Files: make(map[string]*FileEntry)}
}

// fileKey is the base name, so moving the storage directory keeps history
func fileKey(recordSet string) string {
	return filepath.Base(recordSet)
}

// Has reports whether key was already inserted from recordSet
func (l *Ledger) Has(recordSet, key string) bool {
	entry, ok := l.Files[fileKey(recordSet)]
	if !ok {
		return false
	}
	_, done := entry.Keys[key]
	return done
}

// Mark records key as inserted from recordSet
func (l *Ledger) Mark(recordSet, key string) {
	name := fileKey(recordSet)
	entry, ok := l.Files[name]
	if !ok {
		entry = &FileEntry{Keys: make(map[string]time.Time)}
		l.Files[name] = entry
	}
	now := time.Now().UTC()
	entry.Keys[key] = now
	entry.LastSync = now
}

// Count returns how many rows of recordSet are recorded
func (l *Ledger) Count(recordSet string) int {
	if entry, ok := l.Files[fileKey(recordSet)]; ok {
		return len(entry.Keys)
	}
	return 0
}

// Forget drops everything recorded for recordSet
func (l *Ledger) Forget(recordSet string) {
	delete(l.Files, fileKey(recordSet))
}

// Manager loads and saves the ledger file
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager uses path, or <data dir>/ledger.json when path is empty
func NewManager(path string) (*Manager, error) {
	if path == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		path = filepath.Join(dataDir, "ledger.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &Manager{path: path, logger: logger.GetLogger()}, nil
}

// Path returns the ledger file location
func (m *Manager) Path() string {
	return m.path
}

// Load reads the ledger; a missing file yields an empty ledger
func (m *Manager) Load() (*Ledger, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	ledger := NewLedger()
	if err := json.Unmarshal(data, ledger); err != nil {
		return nil, fmt.Errorf("failed to decode ledger %s: %w", m.path, err)
	}
	if ledger.Files == nil {
		ledger.Files = make(map[string]*FileEntry)
	}
	if ledger.Version > ledgerVersion {
		return nil, fmt.Errorf("ledger %s has version %d, newer than supported %d", m.path, ledger.Version, ledgerVersion)
	}

	m.logger.DebugWithFields("Ledger loaded", map[string]interface{}{
		"path":  m.path,
		"files": len(ledger.Files),
	})
	return ledger, nil
}

// Save writes the ledger atomically
func (m *Manager) Save(ledger *Ledger) error {
	ledger.Version = ledgerVersion
	ledger.UpdatedAt = time.Now().UTC()

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(ledger); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	m.logger.DebugWithFields("Ledger saved", map[string]interface{}{"path": m.path})
	return nil
}

// Delete removes the ledger file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete ledger: %w", err)
	}
	return nil
}

// getDataDirectory returns the per-OS data directory, creating it
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "tweetsync")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "tweetsync")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "tweetsync")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "tweetsync")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
