package settings

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Settings holds the runtime options of the CLI. The tournament itself is
// described by the YAML file Tournament points to.
type Settings struct {
	Tournament string   `mapstructure:"tournament"`
	Database   Database `mapstructure:"db"`
	Log        Log      `mapstructure:"log"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads settings from defaults, an optional settings file and
// KICKOFF_* environment variables, in increasing priority. An empty path
// looks for kickoff.yaml in the working directory; a missing default
// file is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("tournament", "tournament.yaml")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "kickoff.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kickoff")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KICKOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading settings file")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decoding settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) Validate() error {
	if !slices.Contains([]string{"sqlite", "postgres"}, s.Database.Driver) {
		return errors.Newf("db.driver must be sqlite or postgres, got %q", s.Database.Driver)
	}
	if s.Database.DSN == "" {
		return errors.New("db.dsn is required")
	}
	if !slices.Contains([]string{"console", "json"}, s.Log.Format) {
		return errors.Newf("log.format must be console or json, got %q", s.Log.Format)
	}
	return nil
}
