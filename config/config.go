package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Options controls where configuration is read from.
type Options struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	Mode      Mode
	// Watch re-binds the target when a loaded file changes. OnChange runs
	// after each successful re-bind, on the watcher goroutine.
	Watch    bool
	OnChange func(e fsnotify.Event)
}

func DefaultOptions() Options {
	basePath := os.Getenv("ADMINSITE_CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}
	return Options{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "ADMINSITE",
		Mode:      ModeFromEnv(),
	}
}

// Config wraps a viper instance built from stacked files and env overrides.
type Config struct {
	instance   *viper.Viper
	opts       Options
	files      []string
	watchOnce  sync.Once
	watchMutex sync.RWMutex
	watcher    *fsnotify.Watcher
}

// New loads config.yaml, config.local.yaml, config.<mode>.yaml and
// config.<mode>.local.yaml from BasePath, later files overriding earlier
// ones. Missing files are skipped.
func New(opts Options) (*Config, error) {
	if opts.FileName == "" {
		opts.FileName = "config"
	}
	if opts.FileType == "" {
		opts.FileType = "yaml"
	}
	if opts.Mode == "" {
		opts.Mode = ModeFromEnv()
	}

	files := configFilePaths(opts)
	v := viper.New()
	v.SetConfigType(opts.FileType)

	for _, path := range files {
		tempV := viper.New()
		tempV.SetConfigFile(path)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		for _, key := range tempV.AllKeys() {
			v.Set(key, tempV.Get(key))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	applyEnvOverrides(v, opts.EnvPrefix)

	return &Config{instance: v, opts: opts, files: files}, nil
}

// Files lists the files that were loaded, in stacking order.
func (c *Config) Files() []string {
	return append([]string(nil), c.files...)
}

// Bind unmarshals the configuration into target and, when watching is
// enabled, keeps it updated.
func (c *Config) Bind(target any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config instance is nil")
	}
	if target == nil {
		return fmt.Errorf("target instance is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.instance.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config (path: %s): %w", c.opts.BasePath, err)
	}

	var err error
	if c.opts.Watch && len(c.files) > 0 {
		c.watchOnce.Do(func() {
			err = c.watch(target)
		})
	}
	return err
}

// Close stops watching. It is a no-op when Watch is off.
func (c *Config) Close() error {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func (c *Config) watch(target any) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}
	for _, f := range c.files {
		if err := watcher.Add(filepath.Dir(f)); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", f, err)
		}
	}
	c.watcher = watcher
	go func() {
		for {
			select {
			case e, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !c.tracks(e.Name) || !e.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				c.reload(target, e)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

func (c *Config) tracks(name string) bool {
	for _, f := range c.files {
		if filepath.Clean(f) == filepath.Clean(name) {
			return true
		}
	}
	return false
}

func (c *Config) reload(target any, e fsnotify.Event) {
	fresh, err := New(c.opts)
	if err != nil {
		return
	}
	c.watchMutex.Lock()
	c.instance = fresh.instance
	err = c.instance.Unmarshal(target)
	c.watchMutex.Unlock()
	if err == nil && c.opts.OnChange != nil {
		c.opts.OnChange(e)
	}
}

// BindWithDefaults applies `default` tags before and after unmarshalling.
func (c *Config) BindWithDefaults(target any) error {
	if err := defaults.Set(target); err != nil {
		return fmt.Errorf("failed to set defaults: %w", err)
	}
	if err := c.Bind(target); err != nil {
		return err
	}
	if err := defaults.Set(target); err != nil {
		return fmt.Errorf("failed to set defaults after unmarshal: %w", err)
	}
	return nil
}

func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()
	return c.instance.Get(key)
}

func (c *Config) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()
	c.instance.Set(key, value)
}

// applyEnvOverrides lets PREFIX_SECTION_KEY variables win over file values.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_", "-", "_")
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}
		if envValue, ok := os.LookupEnv(envKey); ok && envValue != "" {
			v.Set(key, envValue)
		}
	}
}

func configFilePaths(opts Options) []string {
	names := []string{opts.FileName, opts.FileName + ".local"}
	for _, alias := range opts.Mode.aliases() {
		names = append(names, opts.FileName+"."+alias, opts.FileName+"."+alias+".local")
	}

	var files []string
	for _, name := range names {
		path := filepath.Join(opts.BasePath, name+"."+opts.FileType)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}
