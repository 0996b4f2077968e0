// Package listing parses FTP directory listings (LIST and MLSD) and exposes
// them as ftpio listers: one entry at a time, or collected all at once, each
// step bounded by a timeout.
//
// Example:
//
//	data, _ := ftpio.NewThrottledStream(dataConn, ftpio.WithTimeout(time.Minute))
//	defer data.Close()
//
//	entries, err := listing.NewLister(data, 10*time.Second).Collect(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, e := range entries {
//	    fmt.Println(e.Type, e.Size, e.Name)
//	}
package listing

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/gonzalop/ftpio"
)

// LineSource yields listing lines including their terminator, and an empty
// line once the listing is exhausted. *ftpio.Stream and
// *ftpio.ThrottledStream implement it.
type LineSource interface {
	ReadLine(ctx context.Context) ([]byte, error)
}

type listProducer struct {
	lines  *ftpio.StreamIterator[[]byte]
	parser *CompositeParser
}

func (p *listProducer) Next(ctx context.Context) (*Entry, error) {
	for {
		line, err := p.lines.Next(ctx)
		if err != nil {
			return nil, err
		}
		if entry := p.parser.Parse(string(trimEOL(line))); entry != nil {
			return entry, nil
		}
	}
}

// NewLister lists LIST output read from src. Lines are parsed with parsers,
// or with DefaultParsers when none are given; blank lines are skipped and
// unrecognized lines yield entries of type "unknown".
func NewLister(src LineSource, timeout time.Duration, parsers ...ListingParser) *ftpio.Lister[*Entry] {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	return ftpio.NewLister[*Entry](&listProducer{
		lines:  ftpio.NewStreamIterator(src.ReadLine),
		parser: &CompositeParser{Parsers: parsers},
	}, timeout)
}

type mlsdProducer struct {
	lines *ftpio.StreamIterator[[]byte]
}

func (p *mlsdProducer) Next(ctx context.Context) (*MLEntry, error) {
	for {
		line, err := p.lines.Next(ctx)
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry, err := ParseMLEntry(string(line))
		if err != nil {
			slog.Debug("listing: skipping MLSD line", "line", string(line), "error", err)
			continue
		}
		return entry, nil
	}
}

// NewMLSDLister lists MLSD output read from src. Malformed lines are skipped.
func NewMLSDLister(src LineSource, timeout time.Duration) *ftpio.Lister[*MLEntry] {
	return ftpio.NewLister[*MLEntry](&mlsdProducer{
		lines: ftpio.NewStreamIterator(src.ReadLine),
	}, timeout)
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
