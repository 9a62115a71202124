package utils

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAMLFile reads a YAML file into a value of type T.
func LoadYAMLFile[T any](filePath string) (T, error) {
	var out T
	data, err := os.ReadFile(filePath)
	if err != nil {
		return out, err
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
