package export

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/catalog-export/internal/domain"
)

type profileFile struct {
	Name         string                 `json:"name"`
	Format       domain.ExportFormat    `json:"format"`
	Filters      json.RawMessage        `json:"filters"`
	Fields       []domain.SelectedField `json:"fields"`
	ClientUserID *int64                 `json:"client_user_id"`
	CurrencyID   *int64                 `json:"currency_id"`
}

// LoadProfileFile reads an unsaved export profile from a YAML file.
func LoadProfileFile(path string) (domain.ExportProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ExportProfile{}, eris.Wrapf(err, "export: read profile file %s", path)
	}
	return ParseProfileYAML(data)
}

// ParseProfileYAML decodes a YAML profile. The document goes through JSON so
// filter nodes use the same group/condition detection as stored profiles.
func ParseProfileYAML(data []byte) (domain.ExportProfile, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.ExportProfile{}, eris.Wrap(err, "export: parse profile yaml")
	}
	if doc == nil {
		return domain.ExportProfile{}, eris.New("export: profile file is empty")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.ExportProfile{}, eris.Wrap(err, "export: profile yaml is not representable as json")
	}

	var file profileFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return domain.ExportProfile{}, eris.Wrap(err, "export: decode profile")
	}
	filters, err := domain.FilterGroupFromJSON(file.Filters)
	if err != nil {
		return domain.ExportProfile{}, eris.Wrap(err, "export: decode profile filters")
	}

	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "export"
	}
	format := domain.ExportFormat(strings.ToLower(strings.TrimSpace(string(file.Format))))
	if format == "" {
		format = domain.ExportFormatJSON
	}
	return domain.ExportProfile{
		Name:         name,
		Format:       format,
		Filters:      filters,
		Fields:       file.Fields,
		IsActive:     true,
		ClientUserID: file.ClientUserID,
		CurrencyID:   file.CurrencyID,
	}, nil
}
