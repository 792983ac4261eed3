package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/catalog-export/internal/domain"
)

func TestOpenDownload_HashEdgeCases(t *testing.T) {
	profiles := newFakeProfiles(dealerProfile())
	service := newTestService(newFakeCatalog(catalogFixture()...), profiles, testRegistry())

	for _, hash := range []string{"", "   ", "missing"} {
		_, err := service.OpenDownload(context.Background(), hash, "")
		assert.True(t, errors.Is(err, ErrNotFound), "hash %q", hash)
	}

	download, err := service.OpenDownload(context.Background(), " h-dealers ", "")
	require.NoError(t, err)
	assert.Equal(t, "dealers-price-2024.csv", download.Filename)
	assert.Equal(t, "text/csv", download.ContentType)
}

func TestOpenProfile_NeverStamps(t *testing.T) {
	profiles := newFakeProfiles()
	service := newTestService(newFakeCatalog(catalogFixture()...), profiles, testRegistry())

	profile := dealerProfile()
	profile.Format = domain.ExportFormatXML
	download, err := service.OpenProfile(context.Background(), profile, "")
	require.NoError(t, err)

	var out bytes.Buffer
	stats, err := download.Stream(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Emitted)
	assert.Contains(t, out.String(), "<products>")
	assert.Empty(t, profiles.stamped)
}

func TestOpenProfile_RejectsUnknownFormat(t *testing.T) {
	service := newTestService(newFakeCatalog(), newFakeProfiles(), testRegistry())
	profile := dealerProfile()
	profile.Format = "pdf"

	_, err := service.OpenProfile(context.Background(), profile, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "format", verr.Problems[0].Path)
}

func TestBuildContext_CurrencyPrecedence(t *testing.T) {
	service := newTestService(newFakeCatalog(), newFakeProfiles(), testRegistry(), WithDefaultCurrency("usd"))
	ctx := context.Background()

	ec, _, err := service.buildContext(ctx, nil, nil, "", false)
	require.NoError(t, err)
	assert.Equal(t, "USD", ec.Currency.Code, "configured default applies when nothing else is set")

	ec, _, err = service.buildContext(ctx, nil, id64(1), "", false)
	require.NoError(t, err)
	assert.Equal(t, "RUB", ec.Currency.Code, "profile currency beats the default")

	ec, _, err = service.buildContext(ctx, nil, id64(1), "USD", false)
	require.NoError(t, err)
	assert.Equal(t, "USD", ec.Currency.Code, "request code beats the profile")

	ec, _, err = service.buildContext(ctx, nil, id64(99), "", false)
	require.NoError(t, err)
	assert.Equal(t, "RUB", ec.Currency.Code, "vanished profile currency falls back to base")
}

func TestBuildContext_MissingClientUser(t *testing.T) {
	service := newTestService(newFakeCatalog(), newFakeProfiles(), testRegistry())

	ec, _, err := service.buildContext(context.Background(), id64(404), nil, "", false)
	require.NoError(t, err)
	assert.Nil(t, ec.ClientUser)

	_, _, err = service.buildContext(context.Background(), id64(404), nil, "", true)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	ec, _, err = service.buildContext(context.Background(), id64(4), nil, "", true)
	require.NoError(t, err)
	require.NotNil(t, ec.ClientUser)
	assert.Equal(t, "msk", ec.ClientUser.Region)
}

func TestParseProfileYAML(t *testing.T) {
	profile, err := ParseProfileYAML([]byte(`
name: Дилеры
format: CSV
client_user_id: 4
filters:
  logic: or
  conditions:
    - field: is_new
      operator: "="
      value: true
    - logic: and
      conditions:
        - field: base_price
          operator: between
          value: [10, 200]
fields:
  - key: sku
    label: Артикул
  - key: is_new
    modifiers:
      true_value: "+"
`))
	require.NoError(t, err)
	assert.Equal(t, "Дилеры", profile.Name)
	assert.Equal(t, domain.ExportFormatCSV, profile.Format)
	assert.True(t, profile.IsActive)
	require.NotNil(t, profile.ClientUserID)
	assert.Equal(t, int64(4), *profile.ClientUserID)

	assert.Equal(t, domain.LogicOr, profile.Filters.Logic)
	require.Len(t, profile.Filters.Conditions, 2)
	assert.NotNil(t, profile.Filters.Conditions[0].Condition)
	assert.NotNil(t, profile.Filters.Conditions[1].Group)

	require.Len(t, profile.Fields, 2)
	require.NotNil(t, profile.Fields[1].Modifiers.TrueValue)
	assert.Equal(t, "+", *profile.Fields[1].Modifiers.TrueValue)
}

func TestParseProfileYAML_Defaults(t *testing.T) {
	profile, err := ParseProfileYAML([]byte("fields:\n  - key: id\n"))
	require.NoError(t, err)
	assert.Equal(t, "export", profile.Name)
	assert.Equal(t, domain.ExportFormatJSON, profile.Format)
	assert.Equal(t, domain.LogicAnd, profile.Filters.Logic)
	assert.Empty(t, profile.Filters.Conditions)

	_, err = ParseProfileYAML([]byte(""))
	require.Error(t, err)
}

func TestLoadProfileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nformat: xml\nfields:\n  - key: id\n"), 0o600))

	profile, err := LoadProfileFile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ExportFormatXML, profile.Format)

	_, err = LoadProfileFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
