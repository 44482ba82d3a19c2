package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	b, err := Load("pt-BR")
	require.NoError(t, err)
	require.Equal(t, []string{"pt-BR", "en"}, b.Supported())

	tests := map[string]string{
		"":                      "pt-BR",
		"en-US,en;q=0.9":        "en",
		"pt-BR;q=0.8, en;q=0.9": "en",
		"pt":                    "pt-BR",
		"fr-FR":                 "pt-BR",
		"ja;q=0.9, en-GB;q=0.5": "en",
		"!!!not a header!!!":    "pt-BR",
	}
	for header, want := range tests {
		require.Equal(t, want, b.Resolve(header), "header %q", header)
	}
}

func TestTranslateFallsBack(t *testing.T) {
	b, err := Load("pt-BR")
	require.NoError(t, err)

	require.Equal(t, "Recomeçar", b.T("pt-BR", "photos.restart"))
	require.Equal(t, "Start over", b.T("en", "photos.restart"))
	require.Equal(t, "Recomeçar", b.T("de", "photos.restart"))
	require.Equal(t, "missing.key", b.T("en", "missing.key"))

	tr := b.For("de")
	require.Equal(t, "pt-BR", tr.Lang())
	require.Equal(t, "Anterior", tr.T("photos.prev"))
}

func TestBundlesShareKeys(t *testing.T) {
	b, err := Load("pt-BR")
	require.NoError(t, err)

	for key := range b.dict["pt-BR"] {
		_, ok := b.dict["en"][key]
		require.True(t, ok, "en is missing %s", key)
	}
	require.Len(t, b.dict["en"], len(b.dict["pt-BR"]))
}

func TestLoadUnknownFallback(t *testing.T) {
	_, err := Load("xx")
	require.Error(t, err)
}
