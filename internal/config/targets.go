package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aigoflow/kubescale-predictor/internal/models"
)

type targetsFile struct {
	Targets []models.Target `yaml:"targets"`
}

// LoadTargets reads the refresher target list from a YAML file of the form
//
//	targets:
//	  - url: https://example.com
//	    deployment: web
//
// Entries without a deployment get defaultDeployment. An entry without a url is an error.
func LoadTargets(path, defaultDeployment string) ([]models.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	var f targetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse targets file: %w", err)
	}

	for i := range f.Targets {
		f.Targets[i].URL = strings.TrimSpace(f.Targets[i].URL)
		if f.Targets[i].URL == "" {
			return nil, fmt.Errorf("target %d: url is required", i)
		}
		if f.Targets[i].Deployment == "" {
			f.Targets[i].Deployment = defaultDeployment
		}
	}
	return f.Targets, nil
}
