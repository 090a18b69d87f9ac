package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/ukaji3/exagg-go/pkg/exagg"
)

// Config is the CLI configuration. Values come from, in increasing priority:
// defaults, exagg.yaml, EXAGG_* environment variables (a .env file is loaded
// first) and command line flags.
type Config struct {
	Workbook struct {
		HeaderRow       int      `mapstructure:"header_row"`
		Sheets          []string `mapstructure:"sheets"`
		TitleCell       string   `mapstructure:"title_cell"`
		BlankLabel      string   `mapstructure:"blank_label"`
		MaxRowsPerSheet int      `mapstructure:"max_rows_per_sheet"`
		SummarySheet    string   `mapstructure:"summary_sheet"`
		ReorderReports  bool     `mapstructure:"reorder_reports"`
	} `mapstructure:"workbook"`

	Match struct {
		Mode        string `mapstructure:"mode"`
		MappingFile string `mapstructure:"mapping_file"`
	} `mapstructure:"match"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`
}

func setDefaults(v *viper.Viper) {
	d := exagg.DefaultOptions()
	v.SetDefault("workbook.header_row", d.HeaderRow)
	v.SetDefault("workbook.sheets", []string{})
	v.SetDefault("workbook.title_cell", "")
	v.SetDefault("workbook.blank_label", d.BlankLabel)
	v.SetDefault("workbook.max_rows_per_sheet", d.MaxRowsPerSheet)
	v.SetDefault("workbook.summary_sheet", d.SummarySheet)
	v.SetDefault("workbook.reorder_reports", true)
	v.SetDefault("match.mode", "whole")
	v.SetDefault("match.mapping_file", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("store.path", "")
}

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"header-row":  "workbook.header_row",
	"sheets":      "workbook.sheets",
	"title-cell":  "workbook.title_cell",
	"blank-label": "workbook.blank_label",
	"max-rows":    "workbook.max_rows_per_sheet",
	"summary":     "workbook.summary_sheet",
	"reorder":     "workbook.reorder_reports",
	"match-mode":  "match.mode",
	"mapping":     "match.mapping_file",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"store":       "store.path",
}

// loadConfig reads configuration into a fresh Config. configFile overrides the
// search for exagg.yaml in the working directory and the user config directory.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*Config, error) {
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("exagg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "exagg"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("EXAGG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range flagKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// options converts the workbook section to run options.
func (c *Config) options() exagg.Options {
	reorder := c.Workbook.ReorderReports
	return exagg.Options{
		HeaderRow:       c.Workbook.HeaderRow,
		BlankLabel:      c.Workbook.BlankLabel,
		MaxRowsPerSheet: c.Workbook.MaxRowsPerSheet,
		SummarySheet:    c.Workbook.SummarySheet,
		ReorderReports:  &reorder,
	}.Normalize()
}
