package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/tombee/docflow/pkg/workflow/schema"
)

// definitionPattern matches workflow definition files under a catalog
// directory, recursively.
const definitionPattern = "**/*.{yaml,yml}"

// Catalog holds the workflow definitions loaded from a directory.
// It is read-only after construction; long-lived callers reload by
// building a fresh catalog and swapping it in.
type Catalog struct {
	dir         string
	logger      *slog.Logger
	definitions map[string]*Definition
	sources     map[string]string // definition name -> file path
}

// LoadCatalog loads every valid definition file under dir, recursively.
// Malformed files and duplicate names are logged and skipped; the load
// only fails when the directory itself is unreadable.
func LoadCatalog(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "catalog"))

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("definitions path %s is not a directory", dir)
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(dir, definitionPattern))
	if err != nil {
		return nil, fmt.Errorf("failed to glob definitions directory %s: %w", dir, err)
	}
	sort.Strings(matches)

	c := &Catalog{
		dir:         dir,
		logger:      logger,
		definitions: make(map[string]*Definition),
		sources:     make(map[string]string),
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable definition file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}

		result, err := schema.ValidateDefinition(data)
		if err != nil {
			logger.Warn("skipping malformed definition file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if !result.Valid {
			logger.Warn("skipping invalid definition file",
				slog.String("path", path),
				slog.String("errors", result.Summary()))
			continue
		}

		def, err := ParseDefinition(data)
		if err != nil {
			logger.Warn("skipping invalid definition file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}

		if existing, ok := c.sources[def.Name]; ok {
			logger.Warn("skipping duplicate workflow definition",
				slog.String("name", def.Name),
				slog.String("path", path),
				slog.String("existing", existing))
			continue
		}

		c.definitions[def.Name] = def
		c.sources[def.Name] = path
		logger.Debug("loaded workflow definition",
			slog.String("name", def.Name),
			slog.String("path", path))
	}

	logger.Info("catalog loaded",
		slog.String("dir", dir),
		slog.Int("workflows", len(c.definitions)))

	return c, nil
}

// NewCatalog builds a catalog directly from definitions, primarily for
// tests and embedded use.
func NewCatalog(defs ...*Definition) *Catalog {
	c := &Catalog{
		logger:      slog.Default(),
		definitions: make(map[string]*Definition),
		sources:     make(map[string]string),
	}
	for _, def := range defs {
		c.definitions[def.Name] = def
	}
	return c
}

// Get returns the definition with the given name.
func (c *Catalog) Get(name string) (*Definition, bool) {
	def, ok := c.definitions[name]
	return def, ok
}

// Has reports whether a definition with the given name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.definitions[name]
	return ok
}

// Names returns the registered workflow names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.definitions))
	for name := range c.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the registered definitions in name order.
func (c *Catalog) Definitions() []*Definition {
	defs := make([]*Definition, 0, len(c.definitions))
	for _, name := range c.Names() {
		defs = append(defs, c.definitions[name])
	}
	return defs
}

// Descriptions returns a name -> description map, used to build the
// resolver's oracle prompt.
func (c *Catalog) Descriptions() map[string]string {
	out := make(map[string]string, len(c.definitions))
	for name, def := range c.definitions {
		out[name] = def.Description
	}
	return out
}

// Source returns the file path a definition was loaded from.
func (c *Catalog) Source(name string) (string, bool) {
	path, ok := c.sources[name]
	return path, ok
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	return len(c.definitions)
}

// Watch emits a signal whenever a definition file under the catalog
// directory is created, modified, removed or renamed. Signals are
// coalesced; receivers reload with LoadCatalog and swap the result in.
// The channel closes when ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) (<-chan struct{}, error) {
	if c.dir == "" {
		return nil, fmt.Errorf("catalog was not loaded from a directory")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory tree; fsnotify does not recurse on its own.
	err = filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch definitions directory: %w", err)
	}

	signals := make(chan struct{}, 1)

	go func() {
		defer close(signals)
		defer fsw.Close()

		for {
			select {
			case <-ctx.Done():
				c.logger.Debug("catalog watcher stopped")
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				// Newly created subdirectories need their own watch.
				if event.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := fsw.Add(event.Name); err != nil {
							c.logger.Warn("failed to watch new directory",
								slog.String("path", event.Name),
								slog.String("error", err.Error()))
						}
						continue
					}
				}
				if !isDefinitionFile(event.Name) {
					continue
				}
				c.logger.Debug("definition file changed",
					slog.String("path", event.Name),
					slog.String("op", event.Op.String()))
				// Non-blocking send coalesces bursts of events.
				select {
				case signals <- struct{}{}:
				default:
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				c.logger.Error("catalog watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return signals, nil
}

// isDefinitionFile reports whether a path looks like a workflow
// definition file.
func isDefinitionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
