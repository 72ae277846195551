package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by Seed. Environments are written
// first so that entries can reference them by code; each entry's code is
// resolved to the numeric environment id before the write, preserving the
// foreign-key invariant (codes never reach the config_entries table).
type SeedFile struct {
	Environments []SeedEnvironment `yaml:"environments"`
	Configs      []SeedConfig      `yaml:"configs"`
}

// SeedEnvironment declares one environment row.
type SeedEnvironment struct {
	ID          int64  `yaml:"id"`
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
}

// SeedConfig declares one configuration entry. Environment is the
// environment code, or empty for a global entry.
type SeedConfig struct {
	Key         string `yaml:"key"`
	Value       string `yaml:"value"`
	Environment string `yaml:"environment"`
	DataType    string `yaml:"data_type"`
	Description string `yaml:"description"`
	Active      *bool  `yaml:"active"`
}

// Seed loads a YAML seed file and upserts its contents into the store.
func Seed(ctx context.Context, s Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	return SeedFromFile(ctx, s, &file)
}

// SeedFromFile upserts a parsed seed document into the store.
func SeedFromFile(ctx context.Context, s Store, file *SeedFile) error {
	for i := range file.Environments {
		se := file.Environments[i]
		if se.Code == "" {
			return fmt.Errorf("seed environment %d: code is required", i)
		}
		env := Environment{ID: se.ID, Code: strings.ToUpper(se.Code), Description: se.Description}
		if err := s.UpsertEnvironment(ctx, &env); err != nil {
			return fmt.Errorf("seed environment %q: %w", se.Code, err)
		}
	}

	for i := range file.Configs {
		sc := file.Configs[i]
		if sc.Key == "" {
			return fmt.Errorf("seed config %d: key is required", i)
		}

		entry := ConfigEntry{
			Key:         sc.Key,
			Value:       sc.Value,
			DataType:    sc.DataType,
			Description: sc.Description,
			IsActive:    true,
		}
		if sc.Active != nil {
			entry.IsActive = *sc.Active
		}
		if entry.DataType == "" {
			entry.DataType = "string"
		}

		if sc.Environment != "" {
			env, err := s.FindEnvironmentByCode(ctx, sc.Environment)
			if err != nil {
				return fmt.Errorf("seed config %q: %w", sc.Key, err)
			}
			if env == nil {
				return fmt.Errorf("seed config %q: unknown environment %q", sc.Key, sc.Environment)
			}
			entry.EnvironmentID = &env.ID
		}

		if err := s.UpsertConfig(ctx, &entry); err != nil {
			return fmt.Errorf("seed config %q: %w", sc.Key, err)
		}
	}

	return nil
}
