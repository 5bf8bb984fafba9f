package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidName    = errors.New("invalid preset name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Paths helper for default/story/event files.
type Paths struct {
	BaseDir string // base directory, e.g., /opt/storycore/presets
}

func (p Paths) ChecksDir() string {
	return filepath.Join(p.BaseDir, "checks")
}
func (p Paths) DefaultPath() string {
	return filepath.Join(p.ChecksDir(), "default.yaml")
}
func (p Paths) StoryPath(story string) string {
	return filepath.Join(p.ChecksDir(), story+".yaml")
}
func (p Paths) EventPath(story, event string) string {
	return filepath.Join(p.ChecksDir(), story, "events", event+".yaml")
}

// Loader reads YAML presets and merges default → story → event.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: "story" or "story/event"
	gen   uint64               // bumped by Invalidate
}

// NewLoader creates a preset loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

// Paths returns the directory layout the loader reads from.
func (l *Loader) Paths() Paths { return l.paths }

// LoadMerged loads and merges default → story → event (event optional).
// It returns the merged RawConfig without normalization. A named event must
// exist on disk; default and story layers are optional but at least one
// layer must be found.
func (l *Loader) LoadMerged(story, event string) (RawConfig, error) {
	if !namePattern.MatchString(story) {
		return RawConfig{}, fmt.Errorf("%w: story %q", ErrInvalidName, story)
	}
	if event != "" && !namePattern.MatchString(event) {
		return RawConfig{}, fmt.Errorf("%w: event %q", ErrInvalidName, event)
	}

	key := story
	if event != "" {
		key = story + "/" + event
	}
	l.mu.RLock()
	if cfg, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	gen := l.gen
	l.mu.RUnlock()

	defCfg, defFound, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	storyCfg, storyFound, err := readYAML(l.paths.StoryPath(story))
	if err != nil {
		return RawConfig{}, fmt.Errorf("read story %s: %w", story, err)
	}
	var eventCfg RawConfig
	if event != "" {
		var found bool
		eventCfg, found, err = readYAML(l.paths.EventPath(story, event))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read event %s/%s: %w", story, event, err)
		}
		if !found {
			return RawConfig{}, fmt.Errorf("%w: %s/%s", ErrPresetNotFound, story, event)
		}
	} else if !defFound && !storyFound {
		return RawConfig{}, fmt.Errorf("%w: %s", ErrPresetNotFound, story)
	}

	// Merge: default <- story <- event
	storyMerged := mergeRaw(defCfg, storyCfg)
	merged := mergeRaw(storyMerged, eventCfg)

	l.cacheLayers(gen, story, key, storyMerged, merged, defFound || storyFound)
	return merged, nil
}

// cacheLayers stores merged layers unless Invalidate ran after gen was read,
// in which case the files may have changed under the read.
func (l *Loader) cacheLayers(gen uint64, story, key string, storyMerged, merged RawConfig, storyOK bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return
	}
	if storyOK {
		l.cache[story] = storyMerged
	}
	l.cache[key] = merged
}

// Invalidate clears loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.cache = make(map[string]RawConfig)
}

// readYAML loads a YAML file into RawConfig. Missing files return a zero cfg
// with found=false and no error.
func readYAML(path string) (cfg RawConfig, found bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, false, nil
		}
		return RawConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, true, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, true, nil
}

// mergeRaw overlays b onto a: scalars override where set, influence and rule
// lists replace when b provides any.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// check
	if b.Check.ActorID != nil {
		out.Check.ActorID = b.Check.ActorID
	}
	if b.Check.BaseRequired != nil {
		out.Check.BaseRequired = b.Check.BaseRequired
	}
	if b.Check.ResistToExtraRequired != nil {
		out.Check.ResistToExtraRequired = b.Check.ResistToExtraRequired
	}
	if b.Check.SuccessThreshold != nil {
		out.Check.SuccessThreshold = b.Check.SuccessThreshold
	}
	if len(b.Check.Influences) > 0 {
		out.Check.Influences = append([]InfluenceConfig(nil), b.Check.Influences...)
	}

	// rules
	if len(b.Rules) > 0 {
		out.Rules = append([]RuleConfig(nil), b.Rules...)
	}

	return out
}
