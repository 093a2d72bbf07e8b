package domain

import (
	"context"

	"golang.org/x/sync/errgroup"

	"recordpipeline/internal/ports"
)

// RecordStatus describes where a key currently lives.
type RecordStatus struct {
	Key       string    `json:"key"`
	State     State     `json:"state"`
	Locations Locations `json:"locations"`
	Note      string    `json:"note,omitempty"`
}

// InspectionService answers read-only questions about pipeline state.
type InspectionService struct {
	storage         ports.ObjectStorage
	catalog         ports.Catalog
	rawBucket       string
	processedBucket string
	archiveBucket   string
}

type InspectionConfig struct {
	RawBucket       string
	ProcessedBucket string
	ArchiveBucket   string
}

func NewInspectionService(storage ports.ObjectStorage, catalog ports.Catalog, cfg InspectionConfig) *InspectionService {
	return &InspectionService{
		storage:         storage,
		catalog:         catalog,
		rawBucket:       cfg.RawBucket,
		processedBucket: cfg.ProcessedBucket,
		archiveBucket:   cfg.ArchiveBucket,
	}
}

// Inspect checks the three locations for key and infers its state.
func (s *InspectionService) Inspect(ctx context.Context, key string) (*RecordStatus, error) {
	var loc Locations
	g, gctx := errgroup.WithContext(ctx)
	probe := func(bucket string, dst *bool) {
		g.Go(func() error {
			ok, err := s.storage.Exists(gctx, bucket, key)
			*dst = ok
			return err
		})
	}
	probe(s.rawBucket, &loc.Raw)
	probe(s.processedBucket, &loc.Processed)
	probe(s.archiveBucket, &loc.Archive)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	status := &RecordStatus{Key: key, State: InferState(loc), Locations: loc}
	switch status.State {
	case StateRaw:
		status.Note = "raw-only objects may also have been dropped by validation"
	case StateUnknown:
		if !loc.Raw && !loc.Processed && !loc.Archive {
			status.Note = "no location holds this key"
		} else {
			status.Note = "locations do not match any pipeline state"
		}
	}
	return status, nil
}

// CatalogEntry returns the catalog row for a business id.
func (s *InspectionService) CatalogEntry(ctx context.Context, id string) (*ports.CatalogEntry, error) {
	return s.catalog.Get(ctx, id)
}
