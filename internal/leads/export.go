package leads

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/store"
)

// Format is a lead export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", eris.Errorf("leads: unknown format %q", s)
}

// exportPageSize is the page size used to walk the store during Export.
const exportPageSize = 500

// Export writes every stored lead, newest first, and returns the count.
func (s *Service) Export(ctx context.Context, w io.Writer, format Format) (int, error) {
	all := []model.Lead{}
	for offset := 0; ; offset += exportPageSize {
		page, err := s.store.ListLeads(ctx, store.LeadFilter{Limit: exportPageSize, Offset: offset})
		if err != nil {
			return 0, eris.Wrap(err, "leads: export list")
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			break
		}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(all); err != nil {
			return 0, eris.Wrap(err, "leads: encode json")
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(all); err != nil {
			return 0, eris.Wrap(err, "leads: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return 0, eris.Wrap(err, "leads: encode yaml")
		}
	default:
		return 0, eris.Errorf("leads: unknown format %q", format)
	}
	return len(all), nil
}

// Import reads an export and upserts its leads by id. Missing status and
// origin take the capture defaults.
func (s *Service) Import(ctx context.Context, r io.Reader, format Format) (int64, error) {
	var in []model.Lead
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return 0, eris.Wrap(err, "leads: decode json")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&in); err != nil && err != io.EOF {
			return 0, eris.Wrap(err, "leads: decode yaml")
		}
	default:
		return 0, eris.Errorf("leads: unknown format %q", format)
	}

	for i := range in {
		if in[i].Status == "" {
			in[i].Status = model.LeadStatusNew
		}
		if in[i].Origin == "" {
			in[i].Origin = model.OriginLandingPage
		}
	}

	n, err := s.store.ImportLeads(ctx, in)
	if err != nil {
		return 0, eris.Wrap(err, "leads: import")
	}
	zap.L().Info("leads: imported", zap.Int64("count", n))
	return n, nil
}
