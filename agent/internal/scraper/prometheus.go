package scraper

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chargewatch/chargewatch/agent/internal/config"
	"github.com/chargewatch/chargewatch/agent/internal/pipeline"
)

// fieldUnits maps known charge controller fields to their units.
var fieldUnits = map[string]string{
	"adc_vl_f": "V",
	"adc_vb_f": "V",
	"adc_va_f": "V",
	"adc_il_f": "A",
	"adc_ic_f": "A",
}

type promSource struct {
	src    config.Source
	client *http.Client
}

// Read fetches the exporter's text exposition and returns one Sample with a
// field per metric family. Families listed in src.Fields are renamed.
func (s *promSource) Read(ctx context.Context) (pipeline.Sample, error) {
	mfs, err := fetchMetrics(ctx, s.client, s.src.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("prometheus source %q: %w", s.src.ID, err)
	}

	out := make(pipeline.Sample, len(mfs))
	for name, mf := range mfs {
		v, ok := familyValue(mf)
		if !ok {
			continue
		}
		field := name
		if renamed, ok := s.src.Fields[name]; ok && renamed != "" {
			field = renamed
		}
		v.Unit = fieldUnits[field]
		out[field] = v
	}
	return out, nil
}
