package knowledge

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed authorities.yaml
var authoritiesYAML []byte

// AuthorityEntry - верифицированная запись реестра.
// Реестр существует, чтобы не галлюцинировать ссылки: для известных
// инстанций наружу уходят только эти URL.
type AuthorityEntry struct {
	Name    string            `yaml:"name"`
	Contact map[string]string `yaml:"contact"`
}

var verifiedAuthorities map[string]AuthorityEntry

func init() {
	if err := yaml.Unmarshal(authoritiesYAML, &verifiedAuthorities); err != nil {
		panic(fmt.Sprintf("knowledge: broken embedded authorities.yaml: %v", err))
	}
}

// LookupAuthority ищет инстанцию в верифицированном реестре по
// нормализованному ключу с простым fuzzy-совпадением подстрок.
func LookupAuthority(key string) (AuthorityEntry, bool) {
	norm := strings.ReplaceAll(strings.ToLower(key), " ", "")
	if norm == "" {
		return AuthorityEntry{}, false
	}

	// Точное совпадение важнее fuzzy
	if entry, ok := verifiedAuthorities[norm]; ok {
		return entry, true
	}

	for k, entry := range verifiedAuthorities {
		if strings.Contains(norm, k) || strings.Contains(k, norm) {
			return entry, true
		}
	}

	return AuthorityEntry{}, false
}
