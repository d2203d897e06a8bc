package overview

import (
	"fmt"

	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/entity"
	"gopkg.in/yaml.v2"
)

type document struct {
	HarvestFromDate *entity.Date  `yaml:"harvest_from_date,omitempty"`
	Endpoints       []endpointDoc `yaml:"endpoints"`
}

// Flags are pointers so that a hand written file may leave them out and
// still get the defaults of a new endpoint. The uri must be present, an
// empty one is a valid key.
type endpointDoc struct {
	URI         *string      `yaml:"uri"`
	Group       string       `yaml:"group"`
	Block       *bool        `yaml:"block"`
	Retry       *bool        `yaml:"retry"`
	Incremental *bool        `yaml:"incremental"`
	Scenario    string       `yaml:"scenario"`
	Attempted   *entity.Date `yaml:"attempted,omitempty"`
	Harvested   *entity.Date `yaml:"harvested,omitempty"`
	Count       int64        `yaml:"count"`
	Increment   int64        `yaml:"increment"`
}

// Encode renders the overview document.
func Encode(o *entity.Overview) ([]byte, error) {
	doc := document{
		HarvestFromDate: o.HarvestFromDate,
		Endpoints:       make([]endpointDoc, 0, len(o.Endpoints)),
	}

	for _, e := range o.Endpoints {
		uri, block, retry, incremental := e.URI, e.Blocked, e.Retry, e.Incremental
		doc.Endpoints = append(doc.Endpoints, endpointDoc{
			URI:         &uri,
			Group:       e.Group,
			Block:       &block,
			Retry:       &retry,
			Incremental: &incremental,
			Scenario:    e.Scenario,
			Attempted:   e.Attempted,
			Harvested:   e.Harvested,
			Count:       e.Count,
			Increment:   e.Increment,
		})
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal overview: %w", err)
	}

	return data, nil
}

// Decode parses an overview document. Anything that does not fit the schema
// is reported as common.ErrCorruptRecord.
func Decode(data []byte) (*entity.Overview, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", common.ErrCorruptRecord)
	}

	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptRecord, err)
	}

	o := &entity.Overview{
		HarvestFromDate: doc.HarvestFromDate,
		Endpoints:       make([]*entity.EndpointState, 0, len(doc.Endpoints)),
	}

	for i, ed := range doc.Endpoints {
		if err := ed.validate(); err != nil {
			return nil, fmt.Errorf("%w: endpoint %d: %v", common.ErrCorruptRecord, i, err)
		}

		e := entity.NewEndpointState(*ed.URI)
		e.Group = ed.Group
		e.Scenario = ed.Scenario
		e.Attempted = ed.Attempted
		e.Harvested = ed.Harvested
		e.Count = ed.Count
		e.Increment = ed.Increment
		if ed.Block != nil {
			e.Blocked = *ed.Block
		}
		if ed.Retry != nil {
			e.Retry = *ed.Retry
		}
		if ed.Incremental != nil {
			e.Incremental = *ed.Incremental
		}

		o.Endpoints = append(o.Endpoints, e)
	}

	return o, nil
}

func (d *endpointDoc) validate() error {
	if d.URI == nil {
		return fmt.Errorf("missing uri")
	}

	if d.Count < 0 || d.Increment < 0 {
		return fmt.Errorf("negative counter")
	}

	if d.Harvested != nil {
		if d.Attempted == nil {
			return fmt.Errorf("harvested without attempted")
		}

		if d.Attempted.Before(*d.Harvested) {
			return fmt.Errorf("harvested %s after attempted %s", d.Harvested, d.Attempted)
		}
	}

	return nil
}
