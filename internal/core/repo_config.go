package core

// RepoConfig represents the structure of the .migrations-check.yml file.
// Empty fields fall back to the global check settings.
type RepoConfig struct {
	// Directory prefix that migration files live under.
	MigrationsPath string `yaml:"migrations_path"`

	// Required file suffix, e.g. ".php".
	Extension string `yaml:"extension"`

	// Free-form project notes appended to the review instructions.
	Context string `yaml:"context"`

	// Dry-run command template; "{path}" is replaced by the migration path.
	ExtractCommand string `yaml:"extract_command"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{}
}

// PathSettings drops the fields that would run or steer anything on the
// checking host. Only the file selection survives.
func (rc *RepoConfig) PathSettings() *RepoConfig {
	if rc == nil {
		return nil
	}
	return &RepoConfig{MigrationsPath: rc.MigrationsPath, Extension: rc.Extension}
}
