package listing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MLEntry represents a machine-readable directory entry from MLST/MLSD.
// This provides structured, unambiguous file information compared to LIST.
type MLEntry struct {
	// Name is the file or directory name
	Name string

	// Type is the entry type: "file", "dir", "cdir" (current), "pdir" (parent), or "link"
	Type string

	// Size is the file size in bytes (0 for directories)
	Size int64

	// ModTime is the modification time
	ModTime time.Time

	// Perm contains permission information (e.g., "r", "w", "a", "d", "f")
	Perm string

	// UnixMode is the Unix file mode (if provided by server)
	UnixMode string

	// Facts contains all raw facts from the server
	Facts map[string]string
}

// ParseMLEntry parses a single MLST/MLSD entry line (RFC 3659).
// Format: "facts entry-name"
// Facts format: "fact1=value1;fact2=value2;fact3=value3; "
func ParseMLEntry(line string) (*MLEntry, error) {
	factsStr, name, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("invalid ML entry format: no space separator")
	}

	facts := make(map[string]string)
	for pair := range strings.SplitSeq(factsStr, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		facts[strings.ToLower(key)] = value
	}

	entry := &MLEntry{
		Name:  name,
		Facts: facts,
	}

	if typeVal, ok := facts["type"]; ok {
		entry.Type = strings.ToLower(typeVal)
	}

	if sizeVal, ok := facts["size"]; ok {
		if size, err := strconv.ParseInt(sizeVal, 10, 64); err == nil {
			entry.Size = size
		}
	}

	if modifyVal, ok := facts["modify"]; ok {
		// YYYYMMDDHHMMSS or YYYYMMDDHHMMSS.sss
		timestamp, _, _ := strings.Cut(modifyVal, ".")
		if len(timestamp) == 14 {
			if modTime, err := time.Parse("20060102150405", timestamp); err == nil {
				entry.ModTime = modTime.UTC()
			}
		}
	}

	entry.Perm = facts["perm"]
	entry.UnixMode = facts["unix.mode"]

	return entry, nil
}
