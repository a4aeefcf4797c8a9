package importer

import (
	"fmt"
	"io"
)

type Service struct {
	importers map[Source]Importer
}

// NewService registers an importer per source.
func NewService(importers map[Source]Importer) *Service {
	return &Service{importers: importers}
}

func (s *Service) Import(source Source, r io.Reader) ([]PriceRow, error) {
	importer, ok := s.importers[source]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %s", source)
	}

	return importer.Parse(r)
}
