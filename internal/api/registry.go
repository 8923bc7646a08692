package api

import (
	"fmt"

	"github.com/lighttransport/tinyplotlib/internal/service"
)

// DatasetInfo describes one dataset in the /api/datasets listing.
type DatasetInfo struct {
	ID string `json:"id"`
	// Arrays is the number of renderable arrays in the dataset's store,
	// or -1 when the store could not be listed.
	Arrays int `json:"arrays"`
}

// DatasetRegistry maps dataset IDs to their figure services, in config order.
type DatasetRegistry struct {
	services map[string]*service.FigureService
	order    []string
	fallback string
	title    string
}

// NewDatasetRegistry creates an empty registry. defaultDataset names the
// service used for requests that are not tied to a dataset; when empty, the
// first registered dataset is used.
func NewDatasetRegistry(defaultDataset, title string) *DatasetRegistry {
	return &DatasetRegistry{
		services: make(map[string]*service.FigureService),
		fallback: defaultDataset,
		title:    title,
	}
}

// Register adds the figure service of a dataset. IDs must be unique.
func (r *DatasetRegistry) Register(datasetID string, svc *service.FigureService) error {
	if svc == nil {
		return fmt.Errorf("dataset %q: nil figure service", datasetID)
	}
	if _, dup := r.services[datasetID]; dup {
		return fmt.Errorf("dataset %q registered twice", datasetID)
	}
	r.services[datasetID] = svc
	r.order = append(r.order, datasetID)
	return nil
}

// Get returns the figure service for a dataset, or nil if not found.
func (r *DatasetRegistry) Get(datasetID string) *service.FigureService {
	return r.services[datasetID]
}

// DefaultDatasetID returns the dataset used by dataset-less requests.
func (r *DatasetRegistry) DefaultDatasetID() string {
	if _, ok := r.services[r.fallback]; ok {
		return r.fallback
	}
	if len(r.order) > 0 {
		return r.order[0]
	}
	return ""
}

// Default returns the figure service of DefaultDatasetID, or nil when the
// registry is empty.
func (r *DatasetRegistry) Default() *service.FigureService {
	return r.services[r.DefaultDatasetID()]
}

// Title returns the configured site title.
func (r *DatasetRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "tinyplot"
}

// Datasets lists the registered datasets in registration order.
func (r *DatasetRegistry) Datasets() []DatasetInfo {
	infos := make([]DatasetInfo, 0, len(r.order))
	for _, id := range r.order {
		n := -1
		if arrays, err := r.services[id].Arrays(); err == nil {
			n = len(arrays)
		}
		infos = append(infos, DatasetInfo{ID: id, Arrays: n})
	}
	return infos
}
