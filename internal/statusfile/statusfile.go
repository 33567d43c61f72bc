// Package statusfile reads and writes the daemon's advisory status
// record. The record names the daemon's PID, port, tunnel URL and PIN;
// readers never trust it without verification.
package statusfile

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/agentdeck/agentdeck/pkg/paths"
	"github.com/agentdeck/agentdeck/pkg/process"
)

const healthTimeout = 2 * time.Second

// State is the verified daemon state.
type State int

const (
	// NoDaemon means no live, healthy daemon exists. Stale records are
	// deleted on the way to this answer.
	NoDaemon State = iota
	// Healthy means the recorded PID is alive and /health answered.
	Healthy
)

// Path returns the status file location.
func Path() string {
	return paths.StatusFilePath()
}

// Write replaces the status record atomically: full serialize to a
// temp file, then rename. Readers never observe a partial record.
func Write(rec models.StatusRecord) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the record. A missing file is (nil, nil); this is the
// normal "no daemon" answer, not an error.
func Load() (*models.StatusRecord, error) {
	data, err := os.ReadFile(Path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec models.StatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing status record: %w", err)
	}
	return &rec, nil
}

// Remove deletes the record. Already gone is fine.
func Remove() error {
	if err := os.Remove(Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Verify loads the record and checks it against reality: the recorded
// PID must be alive and the daemon must answer /health. Records that
// fail either check are deleted so the next caller starts clean.
func Verify() (State, *models.StatusRecord) {
	logger := logging.NewLogger("statusfile")

	rec, err := Load()
	if err != nil {
		logger.WithError(err).Warn("Unreadable status record, removing")
		Remove()
		return NoDaemon, nil
	}
	if rec == nil {
		return NoDaemon, nil
	}

	if !process.IsAlive(rec.PID) {
		logger.WithField("pid", rec.PID).Debug("Recorded daemon is dead, removing record")
		Remove()
		return NoDaemon, nil
	}

	if !healthCheck(rec.Port) {
		logger.WithField("port", rec.Port).Debug("Daemon not answering /health, removing record")
		Remove()
		return NoDaemon, nil
	}
	return Healthy, rec
}

// healthCheck accepts only a daemon that identifies itself. A 200 from
// an unrelated process that took over the recorded port is stale.
func healthCheck(port int) bool {
	client := &http.Client{Timeout: healthTimeout}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var body struct {
		App string `json:"app"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024)).Decode(&body); err != nil {
		return false
	}
	return body.App == "agentdeck"
}
