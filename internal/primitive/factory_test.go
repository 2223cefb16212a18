package primitive

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/kestrelworks/spatial-core/internal/entity"
	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/pose"
	"github.com/kestrelworks/spatial-core/internal/signal"
)

const tick = 50 * time.Millisecond

type fakeCatalog map[string]*Spec

func (c fakeCatalog) PrimitiveSpec(id string) (*Spec, bool) {
	s, ok := c[id]
	return s, ok
}

type fakeSource struct {
	mu    sync.Mutex
	poses map[string]entity.Pose
}

func newFakeSource() *fakeSource {
	return &fakeSource{poses: make(map[string]entity.Pose)}
}

func (f *fakeSource) set(id string, p entity.Pose) {
	f.mu.Lock()
	f.poses[id] = p
	f.mu.Unlock()
}

func (f *fakeSource) CurrentPose(id string) (entity.Pose, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.poses[id]
	return p, ok
}

type rig struct {
	clock   *signal.ManualClock
	source  *fakeSource
	catalog fakeCatalog
	factory *Factory
	pair    entity.Pair
}

func newRig(t *testing.T) *rig {
	t.Helper()
	clock := signal.NewManualClock(time.Unix(2000, 0))
	source := newFakeSource()
	cfg := pose.DefaultConfig()
	provider := pose.NewProvider(clock, source, cfg)
	catalog := fakeCatalog{}
	a := &entity.Entity{ID: "a", Width: 0.2, Height: 0.1}
	b := &entity.Entity{ID: "b", Width: 0.2, Height: 0.1}
	pair, err := entity.NewPair(a, b)
	if err != nil {
		t.Fatal(err)
	}
	return &rig{
		clock:   clock,
		source:  source,
		catalog: catalog,
		factory: NewFactory(provider, catalog, cfg),
		pair:    pair,
	}
}

func (r *rig) place(id string, pos geometry.Vec3) {
	r.source.set(id, entity.Pose{Position: pos, Orientation: geometry.QuatIdentity})
}

func TestDistanceMetric(t *testing.T) {
	r := newRig(t)
	r.catalog["proximity"] = &Spec{
		ID:        "proximity",
		Metric:    "distance",
		Refs:      []string{"A", "B"},
		Condition: &Condition{Lt: f(0.1)},
	}

	sig, err := r.factory.Get(r.pair, "proximity", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	r.place("a", geometry.Vec3{})
	r.place("b", geometry.Vec3{X: 0.05})
	r.clock.Advance(tick)
	if len(got) != 1 {
		t.Fatalf("payloads = %d, want 1", len(got))
	}
	if math.Abs(got[0].Value.Scalar-0.05) > 1e-9 {
		t.Errorf("distance = %v, want 0.05", got[0].Value.Scalar)
	}
	if !got[0].Valid {
		t.Error("distance 0.05 with lt 0.1 should be valid")
	}

	// Separation grows past the threshold.
	r.place("b", geometry.Vec3{X: 0.5})
	r.clock.Advance(tick)
	if len(got) != 2 {
		t.Fatalf("payloads = %d, want 2", len(got))
	}
	if got[1].Valid {
		t.Error("distance 0.5 with lt 0.1 should be invalid")
	}

	// No movement, no emission.
	r.clock.Advance(tick)
	if len(got) != 2 {
		t.Errorf("static tick emitted: payloads = %d", len(got))
	}
}

func TestDistanceAxisProjectionIsSigned(t *testing.T) {
	r := newRig(t)
	r.catalog["offset"] = &Spec{
		ID:     "offset",
		Metric: "distance:rightA",
		Refs:   []string{"A", "B"},
	}

	sig, err := r.factory.Get(r.pair, "offset", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	// B sits on A's left, so the projection onto A's right axis is
	// negative.
	r.place("a", geometry.Vec3{})
	r.place("b", geometry.Vec3{X: -0.05})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	last := got[len(got)-1]
	if math.Abs(last.Value.Scalar+0.05) > 1e-9 {
		t.Errorf("projected distance = %v, want -0.05", last.Value.Scalar)
	}
}

func TestDistanceUnitConversion(t *testing.T) {
	r := newRig(t)
	r.catalog["gap"] = &Spec{
		ID:     "gap",
		Metric: "distance",
		Refs:   []string{"A", "B"},
		Unit:   "cm",
	}

	sig, err := r.factory.Get(r.pair, "gap", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	r.place("a", geometry.Vec3{})
	r.place("b", geometry.Vec3{X: 0.05})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	if math.Abs(got[0].Value.Scalar-5) > 1e-9 {
		t.Errorf("distance = %v cm, want 5", got[0].Value.Scalar)
	}
}

func TestEdgeDistanceUsesNearestPoints(t *testing.T) {
	r := newRig(t)
	r.catalog["edgegap"] = &Spec{
		ID:     "edgegap",
		Metric: "distance",
		Refs:   []string{"A.edge.right", "B.edge.left"},
	}

	sig, err := r.factory.Get(r.pair, "edgegap", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	// Rectangles are 0.2 wide; centers 0.3 apart leaves a 0.1 gap
	// between the facing edges.
	r.place("a", geometry.Vec3{})
	r.place("b", geometry.Vec3{X: 0.3})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	if math.Abs(got[0].Value.Scalar-0.1) > 1e-9 {
		t.Errorf("edge distance = %v, want 0.1", got[0].Value.Scalar)
	}
}

func TestVelocityPositiveWhenClosing(t *testing.T) {
	r := newRig(t)
	r.catalog["approach"] = &Spec{
		ID:     "approach",
		Metric: "velocity",
		Refs:   []string{"A", "B"},
	}

	sig, err := r.factory.Get(r.pair, "approach", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	r.place("a", geometry.Vec3{})
	r.place("b", geometry.Vec3{X: 0.5})
	r.clock.Advance(tick)

	// B closes 0.05m in 50ms: +1 m/s.
	r.place("b", geometry.Vec3{X: 0.45})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload after two separation samples")
	}
	last := got[len(got)-1]
	if math.Abs(last.Value.Scalar-1.0) > 1e-6 {
		t.Errorf("closing velocity = %v, want 1.0", last.Value.Scalar)
	}
}

func TestOwnVelocityMagnitude(t *testing.T) {
	r := newRig(t)
	r.catalog["speed"] = &Spec{
		ID:     "speed",
		Metric: "velocity",
	}

	sig, err := r.factory.Get(r.pair, "speed", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	r.place("a", geometry.Vec3{})
	r.clock.Advance(tick)
	r.place("a", geometry.Vec3{X: 0.1})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	last := got[len(got)-1]
	if math.Abs(last.Value.Scalar-2.0) > 1e-6 {
		t.Errorf("speed = %v, want 2.0", last.Value.Scalar)
	}
}

func TestAngleBetweenDirections(t *testing.T) {
	r := newRig(t)
	r.catalog["facing"] = &Spec{
		ID:     "facing",
		Metric: "angle",
		Refs:   []string{"A.axis.forward", "B.axis.forward"},
	}

	sig, err := r.factory.Get(r.pair, "facing", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	r.place("a", geometry.Vec3{})
	r.source.set("b", entity.Pose{
		Orientation: geometry.QuatFromAxisAngle(geometry.Vec3{Y: 1}, math.Pi/2),
	})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	last := got[len(got)-1]
	if math.Abs(last.Value.Scalar-90) > 1e-6 {
		t.Errorf("angle = %v, want 90", last.Value.Scalar)
	}
}

func TestEulerComponentAngle(t *testing.T) {
	r := newRig(t)
	r.catalog["heading"] = &Spec{
		ID:     "heading",
		Metric: "angle:yaw",
	}

	sig, err := r.factory.Get(r.pair, "heading", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	r.source.set("a", entity.Pose{
		Orientation: geometry.QuatFromAxisAngle(geometry.Vec3{Y: 1}, math.Pi/6),
	})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	if math.Abs(got[0].Value.Scalar-30) > 1e-6 {
		t.Errorf("yaw = %v, want 30", got[0].Value.Scalar)
	}
}

func TestProjectionOverlap(t *testing.T) {
	r := newRig(t)
	r.catalog["facingOverlap"] = &Spec{
		ID:     "facingOverlap",
		Metric: "projection:forwardA",
		Refs:   []string{"A.surface", "B.surface"},
	}

	sig, err := r.factory.Get(r.pair, "facingOverlap", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	// Identical rectangles stacked along A's normal overlap fully.
	r.place("a", geometry.Vec3{})
	r.place("b", geometry.Vec3{Z: 0.5})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	last := got[len(got)-1]
	if last.Value.Kind != ValueOverlap {
		t.Fatalf("value kind = %v, want overlap", last.Value.Kind)
	}
	if last.Value.Overlap.Kind != geometry.OverlapPolygonPolygon {
		t.Errorf("overlap kind = %v, want polygon_polygon", last.Value.Overlap.Kind)
	}
	if math.Abs(last.Value.Overlap.Ratio-1) > 1e-6 {
		t.Errorf("ratio = %v, want 1", last.Value.Overlap.Ratio)
	}
	if !last.Valid {
		t.Error("full overlap with default condition should be valid")
	}

	// Slide B fully off to the side: empty overlap, invalid.
	r.place("b", geometry.Vec3{X: 1, Z: 0.5})
	r.clock.Advance(tick)
	last = got[len(got)-1]
	if !last.Value.Overlap.Empty() {
		t.Errorf("overlap = %+v, want empty", last.Value.Overlap)
	}
	if last.Valid {
		t.Error("empty overlap must be invalid")
	}
}

func TestAccelerationRMSMagnitude(t *testing.T) {
	r := newRig(t)
	r.catalog["vibration"] = &Spec{
		ID:     "vibration",
		Metric: "acceleration_rms",
	}

	sig, err := r.factory.Get(r.pair, "vibration", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	// Accelerating motion along X: velocity 2 m/s then 4 m/s.
	r.place("a", geometry.Vec3{})
	r.clock.Advance(tick)
	r.place("a", geometry.Vec3{X: 0.1})
	r.clock.Advance(tick)
	r.place("a", geometry.Vec3{X: 0.3})
	r.clock.Advance(tick)

	if len(got) == 0 {
		t.Fatal("no payload after accelerating samples")
	}
	last := got[len(got)-1]
	if last.Value.Scalar <= 0 {
		t.Errorf("rms = %v, want > 0 for accelerating motion", last.Value.Scalar)
	}
}

func TestAccelerationRMSWorldAxis(t *testing.T) {
	r := newRig(t)
	r.catalog["sway"] = &Spec{
		ID:     "sway",
		Metric: "acceleration_rms:X",
	}

	sig, err := r.factory.Get(r.pair, "sway", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	r.place("a", geometry.Vec3{})
	r.clock.Advance(tick)
	r.place("a", geometry.Vec3{X: 0.1})
	r.clock.Advance(tick)
	r.place("a", geometry.Vec3{X: 0.3})
	r.clock.Advance(tick)

	if len(got) == 0 {
		t.Fatal("no payload after accelerating samples")
	}
	last := got[len(got)-1]
	if last.Value.Scalar <= 0 {
		t.Errorf("projected rms = %v, want > 0 for motion along X", last.Value.Scalar)
	}
}

func TestGetCachesAndRefcounts(t *testing.T) {
	r := newRig(t)
	r.catalog["proximity"] = &Spec{
		ID:     "proximity",
		Metric: "distance",
		Refs:   []string{"A", "B"},
	}

	s1, err := r.factory.Get(r.pair, "proximity", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	s2, err := r.factory.Get(r.pair, "proximity", nil)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if s1 != s2 {
		t.Error("second Get built a new signal instead of the cached one")
	}
	if refs := r.factory.Refs(r.pair, "proximity"); refs != 2 {
		t.Errorf("refs = %d, want 2", refs)
	}

	// TryGet hits and increments.
	if _, ok := r.factory.TryGet(r.pair, "proximity"); !ok {
		t.Fatal("TryGet missed a cached entry")
	}
	if refs := r.factory.Refs(r.pair, "proximity"); refs != 3 {
		t.Errorf("refs after TryGet = %d, want 3", refs)
	}

	for i := 0; i < 3; i++ {
		if err := r.factory.Release(r.pair, "proximity"); err != nil {
			t.Fatalf("Release %d: %v", i, err)
		}
	}
	if refs := r.factory.Refs(r.pair, "proximity"); refs != 0 {
		t.Errorf("refs after full release = %d, want 0", refs)
	}
	if _, ok := r.factory.TryGet(r.pair, "proximity"); ok {
		t.Error("TryGet hit an evicted entry")
	}
	if err := r.factory.Release(r.pair, "proximity"); !errors.Is(err, ErrNotReleased) {
		t.Errorf("over-release error = %v, want ErrNotReleased", err)
	}

	// Pairs cache independently.
	solo, err := entity.NewPair(r.pair.A, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.factory.TryGet(solo, "proximity"); ok {
		t.Error("different pair key hit the same cache entry")
	}
}

func TestGetInlineOverride(t *testing.T) {
	r := newRig(t)
	r.catalog["proximity"] = &Spec{
		ID:        "proximity",
		Metric:    "distance",
		Refs:      []string{"A", "B"},
		Condition: &Condition{Lt: f(0.1)},
	}

	sig, err := r.factory.Get(r.pair, "proximity", &InlineSpec{
		ID:        "proximity",
		Condition: &Condition{Lt: f(0.03)},
	})
	if err != nil {
		t.Fatalf("Get with inline: %v", err)
	}
	var got []Payload
	defer sig.Subscribe(func(p Payload) { got = append(got, p) })()

	// 0.05 passes the base condition but fails the inline one.
	r.place("a", geometry.Vec3{})
	r.place("b", geometry.Vec3{X: 0.05})
	r.clock.Advance(tick)
	if len(got) == 0 {
		t.Fatal("no payload")
	}
	if got[0].Valid {
		t.Error("inline lt 0.03 should invalidate distance 0.05")
	}
}

func TestGetCacheIgnoresInlineOverride(t *testing.T) {
	r := newRig(t)
	r.catalog["proximity"] = &Spec{
		ID:        "proximity",
		Metric:    "distance",
		Refs:      []string{"A", "B"},
		Condition: &Condition{Lt: f(0.1)},
	}

	s1, err := r.factory.Get(r.pair, "proximity", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// The cache key is (primitive id, pair key); a later Get with a
	// different inline condition hits the existing entry.
	s2, err := r.factory.Get(r.pair, "proximity", &InlineSpec{
		ID:        "proximity",
		Condition: &Condition{Lt: f(0.03)},
	})
	if err != nil {
		t.Fatalf("Get with inline: %v", err)
	}
	if s1 != s2 {
		t.Error("inline override built a new signal instead of hitting the cache")
	}
	if refs := r.factory.Refs(r.pair, "proximity"); refs != 2 {
		t.Errorf("refs = %d, want 2", refs)
	}
}

func TestGetErrors(t *testing.T) {
	r := newRig(t)
	r.catalog["proximity"] = &Spec{
		ID:     "proximity",
		Metric: "distance",
		Refs:   []string{"A", "B"},
	}
	r.catalog["broken"] = &Spec{
		ID:     "broken",
		Metric: "distance",
		Refs:   []string{"A.surface", "B"},
	}

	if _, err := r.factory.Get(r.pair, "ghost", nil); !errors.Is(err, ErrSpecNotFound) {
		t.Errorf("unknown id error = %v, want ErrSpecNotFound", err)
	}

	// An inline override cannot stand in for a missing catalog spec.
	if _, err := r.factory.Get(r.pair, "ghost", &InlineSpec{ID: "ghost"}); !errors.Is(err, ErrSpecNotFound) {
		t.Errorf("inline-only id error = %v, want ErrSpecNotFound", err)
	}

	if _, err := r.factory.Get(r.pair, "proximity", &InlineSpec{ID: "other"}); !errors.Is(err, ErrInlineIDMismatch) {
		t.Errorf("mismatched inline error = %v, want ErrInlineIDMismatch", err)
	}

	if _, err := r.factory.Get(r.pair, "broken", nil); !errors.Is(err, ErrUnsupportedGeometry) {
		t.Errorf("surface distance error = %v, want ErrUnsupportedGeometry", err)
	}

	if _, err := r.factory.Get(entity.Pair{}, "proximity", nil); !errors.Is(err, entity.ErrNoPrimary) {
		t.Errorf("no-primary error = %v, want entity.ErrNoPrimary", err)
	}

	// Failed builds leave nothing cached.
	if refs := r.factory.Refs(r.pair, "broken"); refs != 0 {
		t.Errorf("failed build cached an entry: refs = %d", refs)
	}
}
