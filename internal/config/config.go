// Package config holds the compiler options the mid-end passes consult.
//
// Options can be loaded from a JSON file named svtnt.json or .svtntrc,
// searched for in the working directory and its parents, then overridden
// per invocation. The options value is threaded explicitly through the
// passes; there is no process-wide global.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Options carries the debug and dump settings the passes read.
type Options struct {
	// Debug is the default debug verbosity for all pass sources.
	Debug int

	// DumpTree is the default tree-dump threshold for all pass sources.
	DumpTree int

	// DebugSrc overrides Debug for individual pass source names
	// (e.g. "dce").
	DebugSrc map[string]int

	// DumpTreeSrc overrides DumpTree for individual pass source names.
	DumpTreeSrc map[string]int

	// DumpDir is the directory tree dumps are written to.
	DumpDir string

	logger *log.Logger
}

// Default returns options with everything quiet and dumps under "obj_dir",
// matching a production compile.
func Default() *Options {
	return &Options{
		DebugSrc:    make(map[string]int),
		DumpTreeSrc: make(map[string]int),
		DumpDir:     "obj_dir",
	}
}

// DebugSrcLevel returns the debug verbosity for one pass source.
func (o *Options) DebugSrcLevel(src string) int {
	if lvl, ok := o.DebugSrc[src]; ok {
		return lvl
	}
	return o.Debug
}

// DumpTreeLevel returns the tree-dump threshold for one pass source.
func (o *Options) DumpTreeLevel(src string) int {
	if lvl, ok := o.DumpTreeSrc[src]; ok {
		return lvl
	}
	return o.DumpTree
}

// SetLogWriter redirects debug logging, which defaults to stderr.
func (o *Options) SetLogWriter(w io.Writer) {
	o.logger = log.New(w, "", 0)
}

// Debugf logs a pass debug message if the source's verbosity reaches
// level.
func (o *Options) Debugf(src string, level int, format string, args ...interface{}) {
	if o.DebugSrcLevel(src) < level {
		return
	}
	if o.logger == nil {
		o.logger = log.New(os.Stderr, "", 0)
	}
	o.logger.Printf("- %s: %s", src, fmt.Sprintf(format, args...))
}

// File is the JSON config file structure. All fields are optional and
// default to the Default() values when unset.
type File struct {
	Debug       *int           `json:"debug,omitempty"`
	DumpTree    *int           `json:"dumpTree,omitempty"`
	DebugSrc    map[string]int `json:"debugSrc,omitempty"`
	DumpTreeSrc map[string]int `json:"dumpTreeSrc,omitempty"`
	DumpDir     *string        `json:"dumpDir,omitempty"`
}

// FileNames are the names searched for config files, in order of
// preference.
var FileNames = []string{
	"svtnt.json",
	".svtntrc",
}

// Load searches for a config file starting from startDir and walking up
// to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*File, string, error) {
	dir := startDir
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads a config file from a specific path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg File
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// ToOptions converts a config file to Options, using defaults for unset
// fields.
func (c *File) ToOptions() *Options {
	opts := Default()

	if c.Debug != nil {
		opts.Debug = *c.Debug
	}
	if c.DumpTree != nil {
		opts.DumpTree = *c.DumpTree
	}
	for src, lvl := range c.DebugSrc {
		opts.DebugSrc[src] = lvl
	}
	for src, lvl := range c.DumpTreeSrc {
		opts.DumpTreeSrc[src] = lvl
	}
	if c.DumpDir != nil {
		opts.DumpDir = *c.DumpDir
	}

	return opts
}

// Overrides are per-invocation settings that win over the config file.
type Overrides struct {
	Debug    *int
	DumpTree *int
	DumpDir  *string
}

// Merge applies CLI overrides on top of config file options.
func (c *File) Merge(cli Overrides) *Options {
	opts := c.ToOptions()

	if cli.Debug != nil {
		opts.Debug = *cli.Debug
	}
	if cli.DumpTree != nil {
		opts.DumpTree = *cli.DumpTree
	}
	if cli.DumpDir != nil {
		opts.DumpDir = *cli.DumpDir
	}

	return opts
}
