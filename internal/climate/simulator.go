package climate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

const (
	// DefaultDriftStep is how far the simulated ambient moves per tick
	DefaultDriftStep = 0.1

	// DefaultDriftInterval is the simulated thermal tick
	DefaultDriftInterval = 5 * time.Second

	// defaultBand is the low/high spread used when switching into heat_cool
	defaultBand = 2.0
)

// Simulator is an in-memory climate entity. It is safe for concurrent use
// and can serve any number of subscribers.
type Simulator struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
	writes int

	// DriftStep is the ambient change per Tick.
	DriftStep float64
}

// NewSimulator creates a simulator starting from the given state.
func NewSimulator(initial State) *Simulator {
	if initial.Min == 0 && initial.Max == 0 {
		initial.Min, initial.Max = 7, 35
	}
	return &Simulator{
		state:     initial,
		subs:      make(map[int]func(State)),
		DriftStep: DefaultDriftStep,
	}
}

// DefaultSimulatedState returns a heat-pump style entity sitting at 21°C.
func DefaultSimulatedState(entityID string) State {
	return State{
		EntityID:       entityID,
		Name:           "Simulated Thermostat",
		Ambient:        Float(20.5),
		Target:         Float(21),
		Min:            7,
		Max:            35,
		Mode:           ModeHeat,
		Action:         ActionHeating,
		AvailableModes: []string{ModeOff, ModeHeat, ModeCool, ModeHeatCool, ModeFanOnly},
		Preset:         "home",
		Unit:           "°C",
	}
}

// State returns a copy of the current entity state.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// Writes returns how many set-point or mode writes have been applied.
func (s *Simulator) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Subscribe registers fn for every state change. The returned function
// removes the subscription.
func (s *Simulator) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Run pushes the current state, then every change, until ctx is done.
func (s *Simulator) Run(ctx context.Context, onState func(State)) error {
	cancel := s.Subscribe(onState)
	defer cancel()

	onState(s.State())
	<-ctx.Done()
	return nil
}

// SetTemperature applies a set-point write.
func (s *Simulator) SetTemperature(ctx context.Context, req TemperatureRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid temperature request: %w", err)
	}

	s.mu.Lock()
	st := s.state
	if req.IsDual() {
		if !st.IsDual() {
			s.mu.Unlock()
			return fmt.Errorf("entity %s is not in a dual set-point mode", st.EntityID)
		}
		st.TargetLow = Float(clampTo(*req.Low, st.Min, st.Max))
		st.TargetHigh = Float(clampTo(*req.High, st.Min, st.Max))
	} else {
		if st.IsDual() {
			s.mu.Unlock()
			return fmt.Errorf("entity %s expects target_temp_low/high", st.EntityID)
		}
		st.Target = Float(clampTo(*req.Target, st.Min, st.Max))
	}
	st.Action = actionFor(st)
	s.state = st
	s.writes++
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetMode switches hvac mode. Entering heat_cool creates a band around the
// previous target; leaving it collapses the band to its midpoint.
func (s *Simulator) SetMode(ctx context.Context, mode string) error {
	s.mu.Lock()
	st := s.state
	if len(st.AvailableModes) > 0 && !slices.Contains(st.AvailableModes, mode) {
		s.mu.Unlock()
		return fmt.Errorf("mode %q not supported by %s", mode, st.EntityID)
	}

	switch {
	case mode == ModeHeatCool && !st.IsDual():
		center := 21.0
		if st.Target != nil {
			center = *st.Target
		}
		st.TargetLow = Float(clampTo(center-defaultBand/2, st.Min, st.Max))
		st.TargetHigh = Float(clampTo(center+defaultBand/2, st.Min, st.Max))
		st.Target = nil
	case mode != ModeHeatCool && st.IsDual():
		mid := (*st.TargetLow + *st.TargetHigh) / 2
		st.Target = Float(mid)
		st.TargetLow, st.TargetHigh = nil, nil
	}
	st.Mode = mode
	st.Action = actionFor(st)
	s.state = st
	s.writes++
	s.mu.Unlock()

	s.notify()
	return nil
}

// Tick moves the ambient temperature one drift step toward whatever the
// entity is trying to reach.
func (s *Simulator) Tick() {
	s.mu.Lock()
	st := s.state
	if st.Ambient == nil {
		s.mu.Unlock()
		return
	}
	amb := *st.Ambient
	switch st.Action {
	case ActionHeating:
		amb += s.DriftStep
	case ActionCooling:
		amb -= s.DriftStep
	default:
		// Off or idle: relax slowly toward 18°C
		if amb > 18 {
			amb -= s.DriftStep / 4
		} else if amb < 18 {
			amb += s.DriftStep / 4
		}
	}
	st.Ambient = Float(math.Round(amb*100) / 100)
	st.Action = actionFor(st)
	s.state = st
	s.mu.Unlock()

	s.notify()
}

// RunDrift calls Tick every interval until ctx is done.
func (s *Simulator) RunDrift(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultDriftInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Close is a no-op; the simulator holds no resources.
func (s *Simulator) Close() error {
	return nil
}

func (s *Simulator) notify() {
	s.mu.Lock()
	st := copyState(s.state)
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// actionFor derives what the simulated equipment does for the given state.
func actionFor(st State) string {
	if st.Ambient == nil {
		return ActionIdle
	}
	amb := *st.Ambient
	switch st.Mode {
	case ModeOff:
		return ActionOff
	case ModeFanOnly:
		return ActionFan
	case ModeHeat:
		if st.Target != nil && amb < *st.Target {
			return ActionHeating
		}
	case ModeCool:
		if st.Target != nil && amb > *st.Target {
			return ActionCooling
		}
	case ModeHeatCool, ModeAuto:
		if st.TargetLow != nil && amb < *st.TargetLow {
			return ActionHeating
		}
		if st.TargetHigh != nil && amb > *st.TargetHigh {
			return ActionCooling
		}
	}
	return ActionIdle
}

func copyState(st State) State {
	cp := st
	cp.Ambient = copyPtr(st.Ambient)
	cp.Target = copyPtr(st.Target)
	cp.TargetLow = copyPtr(st.TargetLow)
	cp.TargetHigh = copyPtr(st.TargetHigh)
	cp.AvailableModes = slices.Clone(st.AvailableModes)
	return cp
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return Float(*p)
}

func clampTo(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
