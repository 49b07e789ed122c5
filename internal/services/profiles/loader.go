package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/scrapeloop/sessiond/internal/models"
)

var validate = validator.New()

// LoadFromDir loads profile definitions from all TOML and YAML files in a
// directory. Each file maps profile names to their settings:
//
//	[residential-us-1]
//	user_agent = "Mozilla/5.0 ..."
//	[residential-us-1.proxy]
//	address = "http://10.1.2.3:8080"
//	auth_header = "Basic dXNlcjpwYXNz"
//
// Malformed files and invalid entries are skipped with a warning. Profiles are
// returned sorted by name so rotation order is stable across restarts.
func LoadFromDir(dirPath string, logger arbor.ILogger) ([]models.Profile, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	var profiles []models.Profile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		filePath := filepath.Join(dirPath, name)
		loaded, err := loadProfileFile(filePath, ext)
		if err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("Skipping unparsable profile file")
			continue
		}

		for _, p := range loaded {
			if err := validate.Struct(p); err != nil {
				logger.Warn().Err(err).Str("file", name).Str("profile", p.Name).Msg("Skipping invalid profile")
				continue
			}
			profiles = append(profiles, p)
		}
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	logger.Info().Int("count", len(profiles)).Str("dir", dirPath).Msg("Loaded profiles")
	return profiles, nil
}

func loadProfileFile(filePath, ext string) ([]models.Profile, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var entries map[string]models.Profile
	switch ext {
	case ".toml":
		if err := toml.Unmarshal(content, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(content, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	profiles := make([]models.Profile, 0, len(entries))
	for name, p := range entries {
		p.Name = name
		profiles = append(profiles, p)
	}
	return profiles, nil
}
