package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
)

// LoadPolicy reads a reconciliation policy from a YAML file. An empty path yields the
// built-in default policy.
func LoadPolicy(path string) (reconciliation.Policy, error) {
	if path == "" {
		p := reconciliation.DefaultPolicy()
		return p, p.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return reconciliation.Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (reconciliation.Policy, error) {
	var p reconciliation.Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return reconciliation.Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return reconciliation.Policy{}, err
	}
	return p, nil
}
