// Package main provides tagdump, a command-line inspector for audio file tags.
//
// Usage:
//
//	tagdump [-raw] [-lookup] [-timeout 30s] <audio_file>...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tagview/tagview-server/internal/config"
	"github.com/tagview/tagview-server/internal/logger"
	"github.com/tagview/tagview-server/internal/lookup"
	"github.com/tagview/tagview-server/internal/metatree"
	"github.com/tagview/tagview-server/internal/musicbrainz"
	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/normalize"
	"github.com/tagview/tagview-server/internal/tags"
)

func main() {
	raw := flag.Bool("raw", false, "Also print the full tag tree")
	doLookup := flag.Bool("lookup", false, "Run catalog and recognition lookups for the ISRC")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout per file")
	verbose := flag.Bool("v", false, "Log debug output to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: tagdump [flags] <audio_file>...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Writer: os.Stderr,
		Level:  logger.ParseLevel(level),
	})

	var orchestrator *lookup.Orchestrator
	if *doLookup {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}
		orchestrator = newOrchestrator(cfg, log)
	}

	reader := tags.NewReader(log.Component("tags"))
	failed := false
	for _, path := range flag.Args() {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		err := dump(ctx, os.Stdout, reader, orchestrator, path, *raw)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func newOrchestrator(cfg *config.Config, log *logger.Logger) *lookup.Orchestrator {
	recognition := musicfetch.New(musicfetch.Config{
		BaseURL:      cfg.Musicfetch.BaseURL,
		Token:        cfg.Musicfetch.Token,
		TokenHeader:  cfg.Musicfetch.TokenHeader,
		ISRCServices: cfg.Musicfetch.ISRCServices,
		URLServices:  cfg.Musicfetch.URLServices,
		Timeout:      cfg.Lookup.Timeout,
	}, log.Component("musicfetch"))
	catalog := musicbrainz.New(musicbrainz.Config{
		BaseURL:   cfg.MusicBrainz.BaseURL,
		UserAgent: cfg.MusicBrainz.UserAgent,
		Rate:      cfg.MusicBrainz.Rate,
		Burst:     cfg.MusicBrainz.Burst,
		Timeout:   cfg.Lookup.Timeout,
	}, log.Component("musicbrainz"))
	return lookup.NewOrchestrator(recognition, catalog, log.Component("lookup"))
}

// report is what tagdump prints for one file.
type report struct {
	File    string           `json:"file"`
	Size    string           `json:"size"`
	Record  normalize.Record `json:"record"`
	Tree    any              `json:"tree,omitempty"`
	Lookups *collected       `json:"lookups,omitempty"`
}

// collected gathers lookup results delivered through lookup.Sink.
type collected struct {
	mu          sync.Mutex
	Recognition json.RawMessage   `json:"recognition,omitempty"`
	Catalog     json.RawMessage   `json:"catalog,omitempty"`
	Artists     []json.RawMessage `json:"artists"`
}

func (c *collected) RecognitionLoaded(raw json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Recognition = raw
}

func (c *collected) CatalogLoaded(raw json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Catalog = raw
}

func (c *collected) ArtistsLoaded(details []json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Artists = details
}

func dump(ctx context.Context, w io.Writer, reader *tags.Reader, orchestrator *lookup.Orchestrator, path string, raw bool) error {
	bag, err := reader.Read(ctx, tags.Upload{Path: path})
	if err != nil {
		return err
	}

	rep := report{
		File:   bag.FileInfo.Name,
		Size:   humanize.IBytes(uint64(bag.FileInfo.Size)), //#nosec G115 -- file sizes are non-negative
		Record: normalize.Normalize(bag),
	}
	if raw {
		rep.Tree = metatree.Redact(bag.Tree())
	}
	if orchestrator != nil && lookup.ShouldLookup(rep.Record.ISRC) {
		rep.Lookups = &collected{Artists: []json.RawMessage{}}
		orchestrator.Run(ctx, rep.Record.ISRC, rep.Lookups)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rep)
}
