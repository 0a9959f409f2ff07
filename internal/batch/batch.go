// Package batch manages the immutable, timestamp-keyed directories that the
// pipeline stages hand to each other. A batch is written once by exactly one
// stage invocation and never rewritten afterwards.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// stampLayout is fixed-width and monotonic, so lexicographic order over
// batch names equals chronological order.
const stampLayout = "20060102-150405"

var stampPattern = regexp.MustCompile(`^\d{8}-\d{6}$`)

// ID identifies one batch directory. It is a dedicated type rather than a
// raw string so callers cannot accidentally compare unrelated names.
type ID string

// New derives a batch ID from the given time, in local time like the rest
// of the data files.
func New(t time.Time) ID {
	return ID(t.Format(stampLayout))
}

// Parse validates a batch name supplied on the command line.
func Parse(s string) (ID, error) {
	if !stampPattern.MatchString(s) {
		return "", fmt.Errorf("invalid batch name %q (want YYYYMMDD-HHMMSS)", s)
	}
	return ID(s), nil
}

func (id ID) String() string { return string(id) }

// Time recovers the timestamp encoded in the batch name.
func (id ID) Time() (time.Time, error) {
	t, err := time.ParseInLocation(stampLayout, string(id), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse batch %q: %w", id, err)
	}
	return t, nil
}

// List returns the batch directories under root in ascending order.
// A missing root is treated as empty, not an error.
func List(root string) ([]ID, error) {
	dirents, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list batches in %s: %w", root, err)
	}
	var ids []ID
	for _, d := range dirents {
		if !d.IsDir() || !stampPattern.MatchString(d.Name()) {
			continue
		}
		ids = append(ids, ID(d.Name()))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Latest returns the lexicographically maximal batch under root, or
// ok=false when none exists.
func Latest(root string) (ID, bool, error) {
	ids, err := List(root)
	if err != nil || len(ids) == 0 {
		return "", false, err
	}
	return ids[len(ids)-1], true, nil
}

// Resolve picks the batch to process: the requested name when non-empty,
// otherwise the latest batch under root.
func Resolve(root, requested string) (ID, bool, error) {
	if requested != "" {
		id, err := Parse(requested)
		if err != nil {
			return "", false, err
		}
		if _, statErr := os.Stat(filepath.Join(root, id.String())); statErr != nil {
			return "", false, fmt.Errorf("batch not found: %s: %w", filepath.Join(root, id.String()), statErr)
		}
		return id, true, nil
	}
	return Latest(root)
}

// WriteJSON persists v as indented JSON with a trailing newline, creating
// parent directories as needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	payload = append(payload, '\n')
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a JSON file into v, reporting the offending path on failure.
func ReadJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// DataFiles lists the record files of a batch directory in name order,
// skipping the underscore-prefixed summary and queue files.
func DataFiles(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read batch dir %s: %w", dir, err)
	}
	var names []string
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || name[0] == '_' || filepath.Ext(name) != ".json" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
