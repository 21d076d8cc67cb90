// Package config loads on-disk defaults for ort.Options, the way the
// teacher's modules/zeta/config package loads repository configuration: a
// plain TOML file, decoded with BurntSushi/toml, with every field optional
// and flag overrides applied by the caller afterward.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/ortmerge/ort/ort"
)

// Merge is the on-disk shape of ort.Options' tunables. Labels,
// RecursiveVariant and Renormalize are not persisted: the CLI sets fixed
// HEAD/BRANCH labels and has no flag for the other two.
type Merge struct {
	DetectDirectoryRenames string `toml:"detect_directory_renames"`
	RenameLimit            int    `toml:"rename_limit"`
	RenameScore            int    `toml:"rename_score"`
	MarkerSize             int    `toml:"marker_size"`
}

// Config is the top-level document; it is deliberately small, since the
// core's tunables are the only thing this repository persists.
type Config struct {
	Merge Merge `toml:"merge"`
}

// Load decodes path into a Config. A missing file is not an error: it
// returns the zero Config, which Options.normalized() already treats as
// "use every default".
func Load(path string) (Config, error) {
	var c Config
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return c, nil
}

// Save encodes c to path, mirroring the teacher's atomic-encode config
// idiom closely enough for a CLI demo: write to a temp file in the same
// directory, then rename over the destination.
func Save(path string, c Config) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", tmp, err)
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("config: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: rename %s: %w", tmp, err)
	}
	return nil
}

// ApplyTo folds c's persisted defaults onto opts, leaving any field opts
// already set (non-zero) untouched — a config file supplies fallbacks, it
// never overrides an explicit flag.
func (c Config) ApplyTo(opts ort.Options) ort.Options {
	if opts.RenameLimit == 0 {
		opts.RenameLimit = c.Merge.RenameLimit
	}
	if opts.RenameScore == 0 {
		opts.RenameScore = c.Merge.RenameScore
	}
	if opts.MarkerSize == 0 {
		opts.MarkerSize = c.Merge.MarkerSize
	}
	if opts.DetectDirectoryRenames == ort.DirRenameNone {
		switch c.Merge.DetectDirectoryRenames {
		case "true":
			opts.DetectDirectoryRenames = ort.DirRenameTrue
		case "conflict":
			opts.DetectDirectoryRenames = ort.DirRenameConflict
		}
	}
	return opts
}
