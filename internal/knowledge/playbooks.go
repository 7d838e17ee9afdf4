package knowledge

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed playbooks.yaml
var playbooksYAML []byte

// playbooks: attack_type -> phase -> generic steps
var playbooks map[string]map[string][]string

func init() {
	if err := yaml.Unmarshal(playbooksYAML, &playbooks); err != nil {
		panic(fmt.Sprintf("knowledge: broken embedded playbooks.yaml: %v", err))
	}
}

// DefaultPlaybookKey - fallback для неизвестных типов атак
const DefaultPlaybookKey = "fraud"

// GetPlaybook возвращает generic playbook по типу атаки.
// Неизвестный тип деградирует до дефолтного "fraud" playbook.
func GetPlaybook(attackType string) map[string][]string {
	if pb, ok := playbooks[attackType]; ok {
		return pb
	}
	return playbooks[DefaultPlaybookKey]
}

// KnownAttackTypes возвращает типы атак с собственным playbook
func KnownAttackTypes() []string {
	types := make([]string, 0, len(playbooks))
	for t := range playbooks {
		types = append(types, t)
	}
	return types
}
