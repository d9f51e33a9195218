package roads

import (
	"fmt"
	"os"

	"traffic-observer/src/logger"
	"traffic-observer/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Catalog loads the static road-segment geometry the map renders. The backend
// has no road resource; segments are a client-side catalog keyed by zone, and
// the live feeds only ever color them.
// -----------------------------------------------------------------------------

type catalogFile struct {
	Segments []catalogSegment `yaml:"segments"`
}

type catalogSegment struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	ZoneID      string       `yaml:"zone_id"`
	ZoneName    string       `yaml:"zone_name"`
	Pincode     string       `yaml:"pincode"`
	Coordinates [][2]float64 `yaml:"coordinates"`
}

// -----------------------------------------------------------------------------

// Load reads the catalog file and returns display-ready segment views seeded
// at free-flow speed and low congestion.
func Load(path string, log *logger.Logger) ([]models.MRoadSegmentView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading road catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing road catalog: %w", err)
	}

	segments := make([]models.MRoadSegmentView, 0, len(file.Segments))
	for _, s := range file.Segments {
		if s.ID == "" || len(s.Coordinates) < 2 {
			log.Warning("Skipping catalog segment with missing id or geometry: %q", s.Name)
			continue
		}
		segments = append(segments, models.MRoadSegmentView{
			ID:          s.ID,
			Name:        s.Name,
			ZoneID:      s.ZoneID,
			ZoneName:    s.ZoneName,
			Pincode:     s.Pincode,
			Coordinates: s.Coordinates,
			Congestion:  models.CongestionLow,
			Speed:       models.SpeedFromDensity(0),
		})
	}

	log.Info("Loaded %d road segments from %s", len(segments), path)
	return segments, nil
}
