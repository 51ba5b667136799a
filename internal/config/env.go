package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides applies the environment variables spec.md §6 recognizes,
// taking precedence over both defaults and any deckard.kdl file. Unset
// variables leave the existing value untouched.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("DECKARD_WORKSPACE_ROOT"); ok && v != "" {
		cfg.Project.Root = v
	}
	if v, ok := os.LookupEnv("DECKARD_ENGINE_MODE"); ok && v != "" {
		cfg.Engine.Mode = v
	}
	if v, ok := envBool("DECKARD_ENGINE_AUTO_INSTALL"); ok {
		cfg.Engine.AutoInstall = v
	}
	if v, ok := envInt("DECKARD_ENGINE_MAX_DOC_BYTES"); ok {
		cfg.Engine.MaxDocBytes = v
	}
	if v, ok := envInt("DECKARD_ENGINE_PREVIEW_BYTES"); ok {
		cfg.Engine.PreviewBytes = v
	}
	if v, ok := envInt("DECKARD_READ_POOL_MAX"); ok {
		cfg.Storage.ReadPoolMax = v
	}
	if v, ok := os.LookupEnv("DECKARD_LINDERA_DICT_PATH"); ok && v != "" {
		cfg.Engine.LinderaDictPath = v
	}
}

func envBool(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
