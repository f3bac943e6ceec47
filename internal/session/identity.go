// internal/session/identity.go
//
// Single-use identity markers. A marker file is written when a player signs
// in and its name travels in the session; the round engine consumes it on
// submit, which deletes the file. Consuming a missing marker is not an error.

package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrBadMarker is returned for names that are not plain file names.
var ErrBadMarker = errors.New("bad identity marker name")

// Markers manages identity marker files under one directory.
type Markers struct {
	dir string
}

// NewMarkers ensures dir exists.
func NewMarkers(dir string) (*Markers, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Markers{dir: dir}, nil
}

// Issue writes a marker named name for userID.
func (m *Markers) Issue(name, userID string) error {
	p, err := m.path(name)
	if err != nil {
		return err
	}
	body := userID + " " + time.Now().UTC().Format(time.RFC3339) + "\n"
	return os.WriteFile(p, []byte(body), 0o600)
}

// Exists reports whether the marker file is present.
func (m *Markers) Exists(name string) bool {
	p, err := m.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Consume deletes the marker if present.
func (m *Markers) Consume(name string) error {
	p, err := m.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove marker: %w", err)
	}
	log.Debug().Str("marker", name).Msg("identity marker consumed")
	return nil
}

// path rejects anything that would escape the marker directory.
func (m *Markers) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", ErrBadMarker
	}
	return filepath.Join(m.dir, name), nil
}
