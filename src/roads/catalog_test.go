package roads

import (
	"os"
	"path/filepath"
	"testing"

	"traffic-observer/src/logger"
	"traffic-observer/src/models"
)

// -----------------------------------------------------------------------------

const sampleCatalog = `
segments:
  - id: "road_a"
    name: "Road A"
    zone_id: "z1"
    zone_name: "Zone One"
    pincode: "400001"
    coordinates:
      - [19.0, 72.8]
      - [19.1, 72.9]

  - id: ""
    name: "Missing ID"
    coordinates:
      - [19.0, 72.8]
      - [19.1, 72.9]

  - id: "road_short"
    name: "One Point Only"
    coordinates:
      - [19.0, 72.8]
`

// -----------------------------------------------------------------------------

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	segments, err := Load(path, logger.NewLogger("ERROR", "test"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Entries without an id or with degenerate geometry are skipped.
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(segments))
	}

	seg := segments[0]
	if seg.ID != "road_a" || seg.ZoneID != "z1" || len(seg.Coordinates) != 2 {
		t.Errorf("unexpected segment: %+v", seg)
	}
	if seg.Congestion != models.CongestionLow {
		t.Errorf("seed congestion = %q, want low", seg.Congestion)
	}
	if seg.Speed != 60 {
		t.Errorf("seed speed = %v, want free flow", seg.Speed)
	}
}

// -----------------------------------------------------------------------------

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), logger.NewLogger("ERROR", "test")); err == nil {
		t.Error("expected error for missing catalog")
	}
}
