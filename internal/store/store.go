package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/songsmith/songsmith-api/internal/song"
)

// ErrNotFound is returned when no song exists under the requested ID.
var ErrNotFound = errors.New("song not found")

const (
	infoFileName     = "song_info.json"
	notationFileName = "notation.json"

	dirPerm  = 0o755
	filePerm = 0o644
)

// SongInfo is the durable metadata record written next to the artifacts.
type SongInfo struct {
	ID            string                     `json:"id"`
	Title         string                     `json:"title"`
	Style         string                     `json:"style,omitempty"`
	Key           string                     `json:"key"`
	Tempo         int                        `json:"tempo"`
	TimeSignature string                     `json:"timeSignature"`
	Bars          int                        `json:"bars"`
	DrumStyle     string                     `json:"drumStyle,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
	Sources       map[string]song.PartSource `json:"sources"`
	Chords        map[string][]string        `json:"chords"`
	Lyrics        map[string][]string        `json:"lyrics"`
	MelodyNotes   map[string]int             `json:"melodyNotes"`
	Anomalies     []string                   `json:"anomalies,omitempty"`
	MIDIBytes     int                        `json:"midiBytes"`
}

// Store keeps one directory per song under the root, holding the MIDI file,
// the notation document and the metadata record. Writes for one ID are
// serialized and staged through temp files, so a reader never sees metadata
// referencing a half-written artifact.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the store root if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create songs directory: %w", err)
	}
	log.Printf("💾 SONG STORE: %s", root)
	return &Store{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the per-ID mutex, creating it on first use.
func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Save writes the MIDI artifact, notation document and metadata as one
// atomic-enough unit: everything is staged to temp files first, then renamed
// into place, artifacts before metadata. Re-saving an ID overwrites it.
func (s *Store) Save(id string, midiData, notationData []byte, info *SongInfo) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create song directory: %w", err)
	}

	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode song info: %w", err)
	}

	// Artifacts land before the metadata that references them.
	files := []struct {
		name string
		data []byte
	}{
		{id + ".mid", midiData},
		{notationFileName, notationData},
		{infoFileName, infoJSON},
	}

	for _, f := range files {
		if err := writeFileAtomic(filepath.Join(dir, f.name), f.data); err != nil {
			return err
		}
	}

	log.Printf("💾 SAVED SONG: %s (%d MIDI bytes)", id, len(midiData))
	return nil
}

// writeFileAtomic stages data in a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("failed to stage %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Exists reports whether a fully-written song is present under the ID.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(filepath.Join(s.root, id, infoFileName))
	return err == nil
}

// GetInfo loads a song's metadata record.
func (s *Store) GetInfo(id string) (*SongInfo, error) {
	data, err := os.ReadFile(filepath.Join(s.root, id, infoFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read song info: %w", err)
	}

	var info SongInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("song info for %s is corrupt: %w", id, err)
	}
	return &info, nil
}

// Artifact kinds.
const (
	KindMIDI     = "midi"
	KindNotation = "notation"
)

// GetArtifact loads the MIDI or notation artifact for a song.
func (s *Store) GetArtifact(id, kind string) ([]byte, error) {
	var name string
	switch kind {
	case KindMIDI:
		name = id + ".mid"
	case KindNotation:
		name = notationFileName
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}

	data, err := os.ReadFile(filepath.Join(s.root, id, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s artifact: %w", kind, err)
	}
	return data, nil
}

// List returns every stored song's metadata, newest first. Directories
// without a readable metadata record are skipped.
func (s *Store) List() ([]*SongInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs directory: %w", err)
	}

	var infos []*SongInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := s.GetInfo(entry.Name())
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// Delete removes a song and all its artifacts.
func (s *Store) Delete(id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(s.root, id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ErrNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete song %s: %w", id, err)
	}
	log.Printf("🗑️  DELETED SONG: %s", id)
	return nil
}
