package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/gorecord/gorecord/internal/cuedef"
	"github.com/gorecord/gorecord/internal/gateway"
	"github.com/gorecord/gorecord/internal/record"
	"github.com/gorecord/gorecord/internal/schema"
)

// Runtime bundles everything a command needs to work with records.
type Runtime struct {
	Config *Config
	Env    *record.Env
}

// Close releases the underlying database handle.
func (rt *Runtime) Close() error {
	return rt.Env.Gateway.Close()
}

// NewRuntime loads the config, compiles the entity declarations and
// opens the database.
func NewRuntime(configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	defs, err := LoadDefinitions(cfg.Defs)
	if err != nil {
		return nil, err
	}

	reg := record.NewRegistry()
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return nil, WrapExitError(ExitCommandError, "register definitions", err)
		}
	}

	if _, err := os.Stat(cfg.Database); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database %s", cfg.Database), err)
	}
	gw, err := gateway.Open(cfg.Database, gateway.Options{
		EncryptionKey: cfg.EncryptionKey(),
		Logger:        slog.Default(),
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	env := record.NewEnv(gw, reg, slog.Default(), loc)
	return &Runtime{Config: cfg, Env: env}, nil
}

// LoadDefinitions compiles every entity declared in the CUE files of
// a directory.
func LoadDefinitions(dir string) ([]*schema.Definition, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("defs directory %s", dir), err)
	}
	if !info.IsDir() {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("not a directory: %s", dir))
	}
	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "scan defs directory", err)
	}
	if len(files) == 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("no CUE files found in %s", dir))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, NewExitError(ExitCommandError, "no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, WrapExitError(ExitCommandError, "loading CUE files", inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, WrapExitError(ExitCommandError, "building CUE value", err)
	}

	defs, err := cuedef.CompileEntities(value)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "compiling definitions", err)
	}
	return defs, nil
}

// findCUEFiles returns the .cue files directly inside dir.
func findCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".cue") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
