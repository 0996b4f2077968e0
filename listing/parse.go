package listing

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gonzalop/ftpio/locale"
)

// halfYear decides whether a "Mon DD HH:MM" date belongs to this year,
// the previous one or the next one.
const halfYear = 15778476 * time.Second

// twoYears bounds how far back a "Feb 29 HH:MM" date may lie before it is
// moved to the next leap year.
const twoYears = 63115200 * time.Second

// Entry represents a file or directory entry from a LIST response.
type Entry struct {
	Name    string
	Type    string // "file", "dir", "link" or "unknown"
	Size    int64
	Target  string    // For symlinks, the target path (empty for files/dirs)
	ModTime time.Time // Zero when the format carries no usable date
	Raw     string    // The raw line
}

// ListingParser is an interface for parsing directory listing entries.
type ListingParser interface {
	Parse(line string) (*Entry, bool)
}

// DefaultParsers returns the built-in parsers in the order they are tried.
func DefaultParsers() []ListingParser {
	return []ListingParser{
		&EPLFParser{},
		&DOSParser{},
		&UnixParser{},
	}
}

// UnixParser parses Unix-style directory entries.
type UnixParser struct {
	// Now returns the reference time used to infer the year of recent
	// entries. Defaults to time.Now.
	Now func() time.Time
}

func (p *UnixParser) Parse(line string) (*Entry, bool) {
	fields := strings.Fields(line)
	// Supports both 9-field and 8-field formats (and numeric perms)
	if len(fields) < 8 {
		return nil, false
	}
	entry := &Entry{Raw: line}
	nameStart, ok := parseUnixEntry(entry, fields)
	if !ok {
		return nil, false
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	if t, err := parseUnixDate(fields[nameStart-3:nameStart], now()); err == nil {
		entry.ModTime = t
	} else {
		slog.Debug("listing: no modification time", "line", line, "error", err)
	}
	return entry, true
}

// DOSParser parses DOS/Windows-style directory entries.
type DOSParser struct{}

func (p *DOSParser) Parse(line string) (*Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, false
	}
	if !isDOSDate(fields[0]) {
		return nil, false
	}
	entry := &Entry{Raw: line}
	if parseDOSEntry(entry, fields) {
		return entry, true
	}
	return nil, false
}

// EPLFParser parses EPLF entries.
type EPLFParser struct{}

func (p *EPLFParser) Parse(line string) (*Entry, bool) {
	if !strings.HasPrefix(line, "+") {
		return nil, false
	}
	entry := &Entry{Raw: line}
	if parseEPLFEntry(entry, line) {
		return entry, true
	}
	return nil, false
}

// CompositeParser tries multiple parsers in order.
type CompositeParser struct {
	Parsers []ListingParser
}

// Parse returns nil for blank lines and an "unknown" entry when no parser
// recognizes the line.
func (p *CompositeParser) Parse(line string) *Entry {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	for _, parser := range p.Parsers {
		if entry, ok := parser.Parse(trimmed); ok {
			return entry
		}
	}

	slog.Debug("listing: unrecognized entry", "line", line)
	return &Entry{
		Raw:  line,
		Name: line,
		Type: "unknown",
	}
}

// ParseLine parses a single line with parsers, or with DefaultParsers when none are given.
func ParseLine(line string, parsers ...ListingParser) *Entry {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	parser := &CompositeParser{
		Parsers: parsers,
	}
	return parser.Parse(line)
}

// parseUnixEntry fills entry from a Unix-style line and returns the index
// of the first name field.
// Handles both 9-field and 8-field formats, numeric and symbolic permissions.
func parseUnixEntry(entry *Entry, fields []string) (int, bool) {
	perms := fields[0]

	isSymbolic := len(perms) >= 1 && strings.IndexByte("-dlbcps", perms[0]) >= 0

	isNumeric := len(perms) >= 3 && len(perms) <= 4
	for _, ch := range perms {
		if ch < '0' || ch > '7' {
			isNumeric = false
			break
		}
	}

	if !isSymbolic && !isNumeric {
		return 0, false
	}

	switch {
	case isSymbolic && perms[0] == 'd':
		entry.Type = "dir"
	case isSymbolic && perms[0] == 'l':
		entry.Type = "link"
	default:
		// Numeric permissions can't tell us the type.
		entry.Type = "file"
	}

	// 9-field: perms links owner group size month day time/year name
	// 8-field: perms links owner size month day time/year name
	var sizeIdx, nameStartIdx int
	switch {
	case len(fields) >= 9 && isSize(fields[4]):
		sizeIdx, nameStartIdx = 4, 8
	case isSize(fields[3]):
		sizeIdx, nameStartIdx = 3, 7
	default:
		return 0, false
	}

	size, err := parseSize(fields[sizeIdx])
	if err != nil {
		slog.Debug("listing: bad size", "line", entry.Raw, "error", err)
		return 0, false
	}
	entry.Size = size

	fullName := strings.Join(fields[nameStartIdx:], " ")

	if entry.Type == "link" {
		if before, after, ok := strings.Cut(fullName, " -> "); ok {
			entry.Name = before
			entry.Target = after
		} else {
			slog.Debug("listing: link without target", "line", entry.Raw)
			entry.Name = fullName
		}
	} else {
		entry.Name = fullName
	}

	return nameStartIdx, true
}

// parseUnixDate parses the three date fields of a Unix listing: either
// "Mon DD HH:MM" (recent, year inferred from now) or "Mon DD YYYY".
// Month names are English, so parsing runs under the C locale.
func parseUnixDate(fields []string, now time.Time) (time.Time, error) {
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("expected 3 date fields, got %d", len(fields))
	}
	stamp := strings.Join(fields, " ")

	var t time.Time
	err := locale.With(locale.C, func(string) error {
		var err error
		if strings.Contains(fields[2], ":") {
			t, err = time.Parse("Jan 2 15:04", stamp)
			if err != nil {
				return err
			}
			now = now.UTC()
			if t.Month() == time.February && t.Day() == 29 {
				t = leapDay(now, t.Hour(), t.Minute())
				return nil
			}
			t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
			switch diff := now.Sub(t); {
			case diff > halfYear:
				t = t.AddDate(1, 0, 0)
			case diff < -halfYear:
				t = t.AddDate(-1, 0, 0)
			}
			return nil
		}
		t, err = time.Parse("Jan 2 2006", stamp)
		return err
	})
	return t, err
}

// leapDay places "Feb 29 HH:MM" in the latest leap year not after now,
// or in the following one if that is more than two years back.
func leapDay(now time.Time, hour, minute int) time.Time {
	year := now.Year()
	for !isLeap(year) {
		year--
	}
	t := time.Date(year, time.February, 29, hour, minute, 0, 0, time.UTC)
	if now.Sub(t) > twoYears {
		t = time.Date(year+4, time.February, 29, hour, minute, 0, 0, time.UTC)
	}
	return t
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// parseEPLFEntry parses an EPLF (Easily Parsed LIST Format) entry.
// Format: +facts\tname or +facts name
// Facts are comma-separated, e.g.: i=inode, m=mtime, s=size, /, r, etc.
// Example: "+i8388621.48594,m825718503,r,s280,\tdjb.html"
func parseEPLFEntry(entry *Entry, line string) bool {
	line = strings.TrimPrefix(line, "+")

	idx := strings.IndexAny(line, "\t ")
	if idx == -1 {
		return false
	}
	facts := line[:idx]
	name := strings.TrimSpace(line[idx+1:])
	if name == "" {
		return false
	}

	entry.Name = name
	entry.Type = "file"

	for fact := range strings.SplitSeq(facts, ",") {
		if fact == "" {
			continue
		}

		switch fact[0] {
		case '/':
			entry.Type = "dir"
		case 's':
			if size, err := parseSize(fact[1:]); err == nil {
				entry.Size = size
			}
		case 'm':
			if secs, err := strconv.ParseInt(fact[1:], 10, 64); err == nil {
				entry.ModTime = time.Unix(secs, 0).UTC()
			}
		}
	}

	return true
}

// isDOSDate checks if a string looks like a DOS/Windows date format.
// Common formats: MM-DD-YY, MM-DD-YYYY, MM/DD/YY, MM/DD/YYYY
func isDOSDate(s string) bool {
	var parts []string
	switch {
	case strings.Contains(s, "-"):
		parts = strings.Split(s, "-")
	case strings.Contains(s, "/"):
		parts = strings.Split(s, "/")
	default:
		return false
	}

	if len(parts) != 3 {
		return false
	}

	for i, part := range parts {
		if len(part) < 1 || len(part) > 4 {
			return false
		}
		if i == 2 && len(part) != 2 && len(part) != 4 {
			return false
		}
		if i < 2 && len(part) > 2 {
			return false
		}
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return false
			}
		}
	}
	return true
}

// parseDOSEntry parses a DOS/Windows-style directory entry.
//
//	"12-14-23  12:22PM           1037794 large-document.pdf"
//	"09-24-24  10:30AM       <DIR>          logger"
func parseDOSEntry(entry *Entry, fields []string) bool {
	if len(fields) < 4 {
		return false
	}

	if t, err := parseDOSDate(fields[0], fields[1]); err == nil {
		entry.ModTime = t
	}

	if fields[2] == "<DIR>" {
		entry.Type = "dir"
		entry.Size = 0
		entry.Name = strings.Join(fields[3:], " ")
		return true
	}

	size, err := parseSize(fields[2])
	if err != nil {
		slog.Debug("listing: bad size", "line", entry.Raw, "error", err)
		return false
	}

	entry.Type = "file"
	entry.Size = size
	entry.Name = strings.Join(fields[3:], " ")
	return true
}

func parseDOSDate(date, clock string) (time.Time, error) {
	date = strings.ReplaceAll(date, "/", "-")
	layouts := []string{"01-02-06 03:04PM", "01-02-2006 03:04PM", "01-02-06 15:04", "01-02-2006 15:04"}
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, date+" "+clock); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func isSize(s string) bool {
	_, err := parseSize(s)
	return err == nil
}

// parseSize parses a size string from a directory listing.
func parseSize(sizeStr string) (int64, error) {
	return strconv.ParseInt(sizeStr, 10, 64)
}
