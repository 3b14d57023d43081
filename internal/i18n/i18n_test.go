package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForLanguage(t *testing.T) {
	assert.True(t, ForLanguage("en").English())
	assert.True(t, ForLanguage("en-US").English())
	assert.True(t, ForLanguage("EN-gb").English())

	assert.False(t, ForLanguage("fr").English())
	assert.False(t, ForLanguage("fr-CM").English())
	assert.False(t, ForLanguage("de").English())
	assert.False(t, ForLanguage("").English())
}

func TestT_Formats(t *testing.T) {
	en := ForLanguage("en")
	got := en.T(WarnInvalidTrxID, "!", 20)
	assert.Contains(t, got, "20")

	fr := ForLanguage("fr")
	assert.NotEqual(t, en.T(Yes), fr.T(Yes))
}

func TestT_UnknownKey(t *testing.T) {
	assert.Equal(t, "nope", ForLanguage("en").T(Key("nope")))
}

func TestCatalogsCover(t *testing.T) {
	for k := range english {
		_, ok := french[k]
		assert.True(t, ok, "missing french message for %s", k)
	}
	for k := range french {
		_, ok := english[k]
		assert.True(t, ok, "missing english message for %s", k)
	}
}
