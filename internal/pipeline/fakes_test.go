package pipeline_test

import (
	"context"
	"sync"

	"procodus.dev/plant-processor/internal/registry"
	"procodus.dev/plant-processor/pkg/plant"
)

type fakeReadings struct {
	mu     sync.Mutex
	stored []*plant.SensorReading
	err    error
	panic  bool
}

func (f *fakeReadings) StoreReading(_ context.Context, reading *plant.SensorReading) error {
	if f.panic {
		panic("store exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, reading)
	return nil
}

// fakeRegistry keeps profiles in memory and provisions them from the defaults table.
type fakeRegistry struct {
	mu           sync.Mutex
	profiles     map[string]*plant.CareProfile
	findErr      error
	provisionErr error
	finds        int
	provisions   int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{profiles: make(map[string]*plant.CareProfile)}
}

func (f *fakeRegistry) Find(_ context.Context, plantID string) (*plant.CareProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	p, ok := f.profiles[plantID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return p, nil
}

func (f *fakeRegistry) AutoProvision(_ context.Context, reading *plant.SensorReading) (*plant.CareProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provisions++
	if f.provisionErr != nil {
		return nil, f.provisionErr
	}
	p := registry.NewProfile(reading, reading.Timestamp)
	f.profiles[reading.PlantID] = p
	return p, nil
}

type fakeSink struct {
	mu      sync.Mutex
	emitted []plant.Alert
	err     error
}

func (f *fakeSink) Emit(_ context.Context, alert *plant.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, *alert)
	return f.err
}

type fakeAutomation struct {
	mu          sync.Mutex
	assessments []plant.Assessment
	err         error
}

func (f *fakeAutomation) Update(_ context.Context, _ *plant.SensorReading, assessment *plant.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assessments = append(f.assessments, *assessment)
	return f.err
}
