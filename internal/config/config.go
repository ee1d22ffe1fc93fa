package config

// Config holds the mrstools CLI configuration.
type Config struct {
	// Output is the destination path: the archive for pack/merge, the
	// directory for unpack.
	Output string `mapstructure:"output"`

	// OnDuplicate selects the collision policy (keep-new, keep-old,
	// keep-both) applied when names collide during pack or merge.
	OnDuplicate string `mapstructure:"on_duplicate"`

	// BasePath is prepended to entry names during pack and merge.
	BasePath string `mapstructure:"base_path"`

	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
