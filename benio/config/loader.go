package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader resolves a Config from defaults, a YAML file and the
// environment.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

func NewLoader() *Loader {
	return &Loader{envPrefix: "BENIO"}
}

func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
	}
	if l.envPrefix != "" {
		if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
			return nil, fmt.Errorf("load config from env: %w", err)
		}
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file on cfg. Unknown keys are rejected
// so typos do not silently fall back to defaults.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", l.configPath, err)
	}
	return nil
}

func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, key); err != nil {
				return err
			}
			continue
		}
		value, ok := os.LookupEnv(key)
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		i, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(i))
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}
