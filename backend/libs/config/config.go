package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that locate configuration sources.
const (
	ConfigFileEnv = "CONFIG_FILE"
	DotEnvFileEnv = "DOTENV_FILE"

	defaultDotEnvPath = ".env"
)

// LoadConfig fills target, a pointer to struct, from three layers in order:
//
//  1. a dotenv file (DOTENV_FILE, else ./.env if present), which never overrides variables
//     already set in the process environment;
//  2. the YAML file named by CONFIG_FILE, if set;
//  3. environment variables, matched by `env:"KEY"` tags or by PARENT_CHILD names derived
//     from field names. `env:"-"` opts a field out.
//
// Every malformed variable is reported, not only the first one.
func LoadConfig(target interface{}) error {
	if target == nil {
		return errors.New("config: target is nil")
	}
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("config: target must be pointer to struct")
	}

	if err := loadDotEnv(os.Getenv(DotEnvFileEnv)); err != nil {
		return err
	}
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadYAML(path, target); err != nil {
			return err
		}
	}
	return applyEnv(collectEnvFields(val.Elem(), "", nil))
}

func loadDotEnv(path string) error {
	if path == "" {
		err := godotenv.Load(defaultDotEnvPath)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load dotenv %s: %w", defaultDotEnvPath, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load dotenv %s: %w", path, err)
	}
	return nil
}

func loadYAML(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: decode yaml %s: %w", path, err)
	}
	return nil
}
