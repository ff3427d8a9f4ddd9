package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/modpipe"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type cleanupConfig struct {
	JunkFiles []string `mapstructure:"junk_files"`
	JunkDirs  []string `mapstructure:"junk_dirs"`
	KeepRoots []string `mapstructure:"keep_roots"`
}

type config struct {
	LinksFile    string `mapstructure:"links_file"`
	ResultsFile  string `mapstructure:"results_file"`
	DownloadsDir string `mapstructure:"downloads_dir"`
	OutputDir    string `mapstructure:"output_dir"`

	UserAgent           string `mapstructure:"user_agent"`
	Timeout             int    `mapstructure:"timeout"`
	Insecure            bool   `mapstructure:"insecure"`
	IncludePatchVersion bool   `mapstructure:"include_patch_version"`
	GameVersion         string `mapstructure:"game_version"`

	Cleanup cleanupConfig     `mapstructure:"cleanup"`
	Parser  modpipe.Selectors `mapstructure:"parser"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("links_file", filepath.Join("json", "links.json"))
	v.SetDefault("results_file", filepath.Join("json", "results.json"))
	v.SetDefault("downloads_dir", "download_mods")
	v.SetDefault("output_dir", "unpacking_mods")

	v.SetDefault("user_agent", modpipe.DefaultUserAgent)
	v.SetDefault("timeout", 60)
	v.SetDefault("insecure", false)
	v.SetDefault("include_patch_version", false)
	v.SetDefault("game_version", "")

	v.SetDefault("cleanup.junk_files", modpipe.DefaultJunkFiles)
	v.SetDefault("cleanup.junk_dirs", modpipe.DefaultJunkDirs)
	v.SetDefault("cleanup.keep_roots", modpipe.DefaultKeepRoots)

	sel := modpipe.DefaultSelectors
	v.SetDefault("parser.title", sel.Title)
	v.SetDefault("parser.info", sel.Info)
	v.SetDefault("parser.patch", sel.Patch)
	v.SetDefault("parser.download", sel.Download)
	v.SetDefault("parser.updated_label", sel.UpdatedLabel)
	v.SetDefault("parser.patch_label", sel.PatchLabel)
	v.SetDefault("parser.link_param", sel.LinkParam)
}

// loadConfig reads defaults, then the config file, then MODPIPE_*
// environment variables. A missing config file is not an error.
func loadConfig(v *viper.Viper) (config, error) {
	setDefaults(v)

	if cfgFile := os.Getenv("MODPIPE_CONFIG"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("modpipe")
		v.AddConfigPath(".")
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "modpipe"))
		}
	}

	v.SetEnvPrefix("modpipe")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config{}, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, errors.Wrap(err, "failed to decode config")
	}

	return cfg, nil
}
