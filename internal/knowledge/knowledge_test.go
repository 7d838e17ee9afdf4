package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternIndexFindsElectricityScam(t *testing.T) {
	idx := NewPatternIndex()

	results := idx.Search("Urgent! Your electricity will be cut tonight at 9PM. Call 9876543210 immediately to pay bill.", 3)
	require.Len(t, results, 3)

	// Ближайший паттерн - скам про отключение электричества
	assert.Contains(t, results[0], "Electricity bill unpaid")
}

func TestPatternIndexTopKBounds(t *testing.T) {
	idx := NewPatternIndexWith([]string{"only one pattern"})

	assert.Len(t, idx.Search("anything", 5), 1)
	assert.Nil(t, idx.Search("anything", 0))
}

func TestScamRulesNonEmpty(t *testing.T) {
	rules := ScamRules()
	require.NotEmpty(t, rules)
	assert.Contains(t, rules[1], "Electricity board")
}

func TestGetPlaybookKnownType(t *testing.T) {
	pb := GetPlaybook("unauthorized_access")
	require.NotNil(t, pb)
	assert.Contains(t, pb["containment"][0], "Log out")
}

func TestGetPlaybookUnknownTypeFallsBackToFraud(t *testing.T) {
	unknown := GetPlaybook("alien_invasion")
	fraud := GetPlaybook("fraud")
	assert.Equal(t, fraud, unknown)
	assert.Contains(t, unknown["reporting"][0], "1930")
}

func TestPlaybooksCoverAllPhases(t *testing.T) {
	phases := []string{"containment", "securing", "reporting", "recovery", "prevention"}
	for _, attackType := range KnownAttackTypes() {
		pb := GetPlaybook(attackType)
		for _, phase := range phases {
			assert.NotEmptyf(t, pb[phase], "playbook %q misses phase %q", attackType, phase)
		}
	}
}

func TestLookupAuthorityRegistry(t *testing.T) {
	entry, ok := LookupAuthority("instagram")
	require.True(t, ok)
	assert.Equal(t, "Instagram Help Center", entry.Name)
	assert.Equal(t, "https://www.instagram.com/hacked/", entry.Contact["hacked_account"])
}

func TestLookupAuthorityFuzzy(t *testing.T) {
	// "Instagram Support" нормализуется и матчится на ключ instagram
	entry, ok := LookupAuthority("Instagram Support")
	require.True(t, ok)
	assert.Equal(t, "Instagram Help Center", entry.Name)

	_, ok = LookupAuthority("Some Small Cooperative Bank")
	assert.False(t, ok)

	_, ok = LookupAuthority("")
	assert.False(t, ok)
}
