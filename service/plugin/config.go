package plugin

import (
	"fmt"

	"github.com/viant/structology/visitor"
	"gopkg.in/yaml.v3"
)

// DecodeConfig converts an untyped plugin config into target, a pointer to
// a struct using yaml tags.
func DecodeConfig(config map[string]interface{}, target interface{}) error {
	normalized, err := normalizeConfig(config)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to encode plugin config: %w", err)
	}
	if err = yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// normalizeConfig copies config, dropping nil entries and nested nil maps.
func normalizeConfig(config map[string]interface{}) (map[string]interface{}, error) {
	ret := make(map[string]interface{}, len(config))
	if len(config) == 0 {
		return ret, nil
	}
	visit := visitor.MapVisitorOf[string, interface{}](config)
	err := visit(func(key string, value interface{}) (bool, error) {
		switch actual := value.(type) {
		case nil:
			return true, nil
		case map[string]interface{}:
			nested, err := normalizeConfig(actual)
			if err != nil {
				return false, err
			}
			ret[key] = nested
		default:
			ret[key] = value
		}
		return true, nil
	})
	return ret, err
}
