package env

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rivlab/analytics-core/structs"
)

// datasetsFile is the on-disk registration document
type datasetsFile struct {
	Datasets []structs.Dataset `yaml:"datasets"`
}

// LoadDatasets reads dataset registrations from a YAML file
func LoadDatasets(path string) ([]structs.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datasets file: %w", err)
	}
	var file datasetsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse datasets file: %w", err)
	}
	return file.Datasets, nil
}
