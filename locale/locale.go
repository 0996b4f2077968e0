// Package locale holds the process-wide locale used when FTP listings are
// formatted or parsed, and the only way to change it: a scoped switch that
// restores the previous locale on exit.
//
// The locale is initialized once, on first use, from LC_ALL, LC_TIME or
// LANG (the first one set), defaulting to "C". It is never reinitialized.
package locale

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// C is the POSIX locale.
const C = "C"

var (
	initOnce sync.Once
	mu       sync.Mutex // serializes With; never exposed
	current  string
	curMu    sync.RWMutex
)

// Error reports a locale name that cannot be applied.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("locale: unsupported locale %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func load() {
	initOnce.Do(func() {
		name := C
		for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
			if v := os.Getenv(key); v != "" {
				name = v
				break
			}
		}
		applied, err := Normalize(name)
		if err != nil {
			applied = C
		}
		current = applied
	})
}

// Current returns the locale in effect.
func Current() string {
	load()
	curMu.RLock()
	defer curMu.RUnlock()
	return current
}

func set(name string) {
	curMu.Lock()
	defer curMu.Unlock()
	current = name
}

// Normalize maps a locale name to the form With applies: "C" and "POSIX"
// become "C"; anything else is parsed as a language tag after dropping
// the encoding and modifier ("en_US.UTF-8@euro" becomes "en-US").
func Normalize(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" || n == C || strings.EqualFold(n, "POSIX") {
		return C, nil
	}
	if i := strings.IndexAny(n, ".@"); i >= 0 {
		n = n[:i]
	}
	if n == C || strings.EqualFold(n, "POSIX") {
		return C, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(n, "_", "-"))
	if err != nil {
		return "", &Error{Name: name, Err: err}
	}
	return tag.String(), nil
}

// With switches the process-wide locale to name, runs fn with the applied
// (normalized) name and restores the previous locale afterwards, also when
// fn fails or panics. Only one With runs at a time in the whole process;
// concurrent callers wait for each other.
//
// Example:
//
//	err := locale.With("C", func(string) error {
//	    t, err = time.Parse("Jan _2 15:04", stamp)
//	    return err
//	})
func With(name string, fn func(applied string) error) error {
	load()
	mu.Lock()
	defer mu.Unlock()

	applied, err := Normalize(name)
	if err != nil {
		return err
	}

	prev := Current()
	set(applied)
	defer set(prev)

	return fn(applied)
}
