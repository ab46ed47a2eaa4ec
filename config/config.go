// Copyright 2020 The Hyperschedule Authors
// This file is part of the hyperschedule library.
//
// The hyperschedule library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The hyperschedule library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the hyperschedule library. If not, see <http://www.gnu.org/licenses/>.

// Package config reads service configuration from the environment. Every
// config var `key` maps to the environment variable HYPERSCHEDULE_<KEY> and
// has a default from the table below.
package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/inconshreveable/log15"
	"github.com/naoina/toml"
)

// EnvPrefix is prepended to upper-cased config keys to form environment
// variable names.
const EnvPrefix = "HYPERSCHEDULE_"

// Defaults maps every recognized config var to its default value. Unknown
// keys are a fatal configuration error.
var Defaults = map[string]string{
	"cache":             "yes",
	"cache_file":        "out/courses.json",
	"debug":             "yes",
	"expose":            "no",
	"port":              "3000",
	"s3_read":           "no",
	"s3_write":          "no",
	"scraper_command":   "",
	"scraper_id":        "claremont",
	"scraper_interval":  "86400",
	"scraper_term_code": "",
	"scraper_term_name": "",
	"scraper_timeout":   "120",
	"snitch":            "no",
	"verbose":           "yes",
}

// Get returns the value of a config var, falling back to its default.
func Get(key string) string {
	if v, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key)); ok {
		return v
	}
	return Defaults[key]
}

// Set overrides a config var for the rest of the process.
func Set(key, value string) error {
	if _, ok := Defaults[key]; !ok {
		return fmt.Errorf("unknown config var: %q", key)
	}
	return os.Setenv(EnvPrefix+strings.ToUpper(key), value)
}

// Bool interprets a config var as a boolean. A value that does not clearly
// indicate one is a fatal configuration error.
func Bool(key string) bool {
	val := Get(key)
	b, err := ParseBool(val)
	if err != nil {
		log.Crit("Malformed boolean config var", "key", key, "value", val)
		os.Exit(1)
	}
	return b
}

// ParseBool accepts "1", "0", "on", "off" and any non-empty prefix of "yes",
// "true", "enabled", "no", "false" or "disabled", case-insensitively.
func ParseBool(val string) (bool, error) {
	low := strings.ToLower(val)
	switch {
	case val == "1" || low == "on" || prefixOf(low, "yes", "true", "enabled"):
		return true, nil
	case val == "0" || low == "off" || prefixOf(low, "no", "false", "disabled"):
		return false, nil
	}
	return false, fmt.Errorf("malformed boolean value: %q", val)
}

func prefixOf(val string, words ...string) bool {
	if val == "" {
		return false
	}
	for _, word := range words {
		if strings.HasPrefix(word, val) {
			return true
		}
	}
	return false
}

// LoadFile applies config vars from a TOML file. Values already present in
// the environment win over the file.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var vars map[string]interface{}
	if err := toml.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("invalid config file %s: %v", path, err)
	}
	for key, val := range vars {
		if _, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key)); ok {
			continue
		}
		if err := Set(key, fmt.Sprintf("%v", val)); err != nil {
			return err
		}
	}
	return nil
}
