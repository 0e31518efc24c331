package motion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const planFileVersion = "1"

type planFile struct {
	Version string `yaml:"version"`
	Plans   []Plan `yaml:"plans"`
}

// WritePlans saves a run's motion plans as YAML so a later run can replay
// them instead of planning fresh.
func WritePlans(path string, plans []Plan) error {
	data, err := yaml.Marshal(planFile{Version: planFileVersion, Plans: plans})
	if err != nil {
		return fmt.Errorf("marshal motion plans: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write motion plans: %w", err)
	}
	return nil
}

// ReadPlans loads plans written by WritePlans, ordered by slide index as
// stored.
func ReadPlans(path string) ([]Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read motion plans: %w", err)
	}
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse motion plans %s: %w", path, err)
	}
	if f.Version != planFileVersion {
		return nil, fmt.Errorf("motion plans %s: unsupported version %q", path, f.Version)
	}
	return f.Plans, nil
}
