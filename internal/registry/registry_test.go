package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedSources(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, id := range []string{
		"brent-crude", "wheat-price", "animal-feed-price", "chicken-feed-price",
		"imf-cpi", "egypt-gdp", "egypt-unemployment", "unhcr-egy", "egx30", "fx", "cbe-food-inflation",
	} {
		_, ok := reg.Get(id)
		assert.True(t, ok, "expected source %s", id)
	}

	brent, _ := reg.Get("brent-crude")
	assert.Equal(t, domain.VariantCSV, brent.Variant)
	assert.Equal(t, domain.FrequencyDaily, brent.Frequency)
	assert.Equal(t, 730, brent.Window)
	assert.Equal(t, domain.YoYRelative, brent.YoY)
	assert.Equal(t, 6*time.Hour, brent.CacheTTL)
	assert.Equal(t, "text/csv", brent.Headers["Accept"])

	cpi, _ := reg.Get("imf-cpi")
	assert.Equal(t, domain.YoYAbsolute, cpi.YoY, "inflation is already a rate")
	assert.Equal(t, domain.FailurePropagate, cpi.OnFailure)

	fx, _ := reg.Get("fx")
	assert.Equal(t, "USD", fx.DefaultBase)
	assert.Equal(t, "EGP", fx.DefaultSymbol)
	assert.Len(t, fx.Points, 24)
}

func TestDefault_PreservesOrder(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	ids := reg.IDs()
	require.NotEmpty(t, ids)
	assert.Equal(t, "brent-crude", ids[0])
	assert.Equal(t, reg.Len(), len(reg.All()))
}

func TestParse_RejectsDuplicates(t *testing.T) {
	data := []byte(`
sources:
  - {id: a, url: http://x, variant: csv, frequency: monthly, yoy: none, onFailure: fallback}
  - {id: a, url: http://y, variant: csv, frequency: monthly, yoy: none, onFailure: fallback}
`)
	_, err := Parse(data)
	assert.True(t, errors.Is(err, domain.ErrInvalidRegistry))
}

func TestParse_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown variant", `{id: a, url: http://x, variant: xml, frequency: monthly, yoy: none, onFailure: fallback}`},
		{"unknown frequency", `{id: a, url: http://x, variant: csv, frequency: weekly, yoy: none, onFailure: fallback}`},
		{"missing yoy mode", `{id: a, url: http://x, variant: csv, frequency: monthly, onFailure: fallback}`},
		{"unknown policy", `{id: a, url: http://x, variant: csv, frequency: monthly, yoy: none, onFailure: retry}`},
		{"missing url", `{id: a, variant: csv, frequency: monthly, yoy: none, onFailure: fallback}`},
		{"entity csv without entity", `{id: a, url: http://x, variant: csv_entity, frequency: yearly, yoy: none, onFailure: fallback}`},
		{"unknown field", `{id: a, url: http://x, variant: csv, frequency: monthly, yoy: none, onFailure: fallback, retries: 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte("sources:\n  - " + tt.yaml + "\n"))
			assert.True(t, errors.Is(err, domain.ErrInvalidRegistry), "got %v", err)
		})
	}
}

func TestParse_StaticSourceNeedsNoURL(t *testing.T) {
	reg, err := Parse([]byte(`
sources:
  - id: curated
    variant: static
    frequency: monthly
    yoy: absolute
    onFailure: fallback
    points:
      - {date: "2023-01", value: 1.5}
`))
	require.NoError(t, err)

	src, ok := reg.Get("curated")
	require.True(t, ok)
	assert.False(t, src.RequiresFetch())
	assert.Equal(t, []domain.StaticPoint{{Date: "2023-01", Value: 1.5}}, src.Points)
}

func TestLoad(t *testing.T) {
	reg, err := Load("")
	require.NoError(t, err)
	assert.Greater(t, reg.Len(), 0)

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - {id: only, url: http://x, variant: csv, frequency: daily, yoy: relative, onFailure: propagate}
`), 0o600))

	reg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, reg.IDs())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
