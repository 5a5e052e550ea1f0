package swath

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Granule is one parsed satellite granule ready for the point search.
type Granule struct {
	ID    string
	Grid  *Grid
	Times []float64 // seconds from the first scanline, one per scanline
	Base  time.Time // UTC start time taken from the granule name
}

// Validate checks that the granule carries a grid and one time per scanline.
func (g *Granule) Validate() error {
	if g == nil || g.Grid == nil {
		return ErrEmptyGrid
	}
	if len(g.Times) != g.Grid.Scanlines() {
		return fmt.Errorf("%w: %d scanline times for %d scanlines", ErrShapeMismatch, len(g.Times), g.Grid.Scanlines())
	}
	return nil
}

// GranuleRef names a granule that a Loader can produce.
type GranuleRef struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// SortRefs orders granule references by link, ascending.
func SortRefs(refs []GranuleRef) {
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Link < refs[j].Link })
}

// Loader fetches and parses a granule.
type Loader interface {
	Load(ctx context.Context, ref GranuleRef) (*Granule, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, ref GranuleRef) (*Granule, error)

func (f LoaderFunc) Load(ctx context.Context, ref GranuleRef) (*Granule, error) { return f(ctx, ref) }

// Query describes one point time series extraction.
type Query struct {
	POI  Point
	Site string

	// Start anchors DayOffset. When zero the earliest sample time is used.
	Start time.Time

	// NoData is the sentinel the estimator returns when a cell has no usable value.
	NoData float64

	// Quality, when set, rejects corner pixels by quality flag.
	Quality QualityFilter

	// SortByTime orders the samples by resolved time instead of granule order.
	SortByTime bool
}

func (q Query) validate() error {
	if !q.POI.Valid() {
		return fmt.Errorf("%w: lon=%v lat=%v", ErrInvalidPoint, q.POI.Lon, q.POI.Lat)
	}
	return nil
}

// Outcome is the result of processing a single granule. The zero value is
// OutcomeUnknown so an unset outcome never reads as a recorded sample.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	Recorded
	GranuleUnreadable
	EmptyPolygon
	PointNotContained
	CellNotFound
	NoUsableValue
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case Recorded:
		return "recorded"
	case GranuleUnreadable:
		return "granule_unreadable"
	case EmptyPolygon:
		return "empty_polygon"
	case PointNotContained:
		return "point_not_contained"
	case CellNotFound:
		return "cell_not_found"
	case NoUsableValue:
		return "no_usable_value"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome name written by MarshalText. "unknown" is
// rejected since no granule is ever reported that way.
func (o *Outcome) UnmarshalText(text []byte) error {
	for c := Recorded; c <= NoUsableValue; c++ {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// GranuleOutcome reports what happened to one granule.
type GranuleOutcome struct {
	GranuleID string  `json:"granule_id"`
	Outcome   Outcome `json:"outcome"`
	Cell      *Cell   `json:"cell,omitempty"`
	Method    Method  `json:"method,omitempty"`
	Err       error   `json:"-"`
}

// Sample is one recorded point estimate.
type Sample struct {
	Time      time.Time `json:"time"`
	DayOffset float64   `json:"day_offset"`
	Value     float64   `json:"value"`
	GranuleID string    `json:"granule_id"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Method    Method    `json:"method"`

	// Corners are the located cell's vertices with their unfiltered values,
	// in (row,col) (row,col+1) (row+1,col+1) (row+1,col) order.
	Corners []Corner `json:"corners,omitempty"`
}

// Series is the result of a query.
type Series struct {
	POI      Point            `json:"poi"`
	Site     string           `json:"site,omitempty"`
	Start    time.Time        `json:"start"`
	Samples  []Sample         `json:"samples"`
	Outcomes []GranuleOutcome `json:"outcomes"`
}

// Observer is notified after each granule is processed.
type Observer interface {
	ObserveGranule(ctx context.Context, q Query, o GranuleOutcome)
}

// Accumulator runs the per-granule point search and collects the samples.
// Granules are processed sequentially and no per-granule failure aborts a query.
type Accumulator struct {
	observers []Observer
}

// NewAccumulator creates an Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// WithObserver returns a copy of the accumulator that also notifies o.
func (a *Accumulator) WithObserver(o Observer) *Accumulator {
	observers := make([]Observer, 0, len(a.observers)+1)
	observers = append(observers, a.observers...)
	return &Accumulator{observers: append(observers, o)}
}

// Accumulate processes already parsed granules in the order given.
//
// Every granule is validated before the loop starts; a malformed granule or
// point fails the whole query. Cancellation is checked once per granule and
// returns the samples gathered so far along with ctx.Err().
func (a *Accumulator) Accumulate(ctx context.Context, granules []*Granule, q Query) (*Series, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	for i, g := range granules {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("granule %d: %w", i, err)
		}
	}

	s := newSeries(q)
	for _, g := range granules {
		if err := ctx.Err(); err != nil {
			return a.finish(s, q), err
		}
		a.process(ctx, s, q, g)
	}
	return a.finish(s, q), nil
}

// Stream loads each referenced granule through loader and processes it in
// the order given. A granule that fails to load or validate is skipped as
// GranuleUnreadable.
func (a *Accumulator) Stream(ctx context.Context, refs []GranuleRef, loader Loader, q Query) (*Series, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	s := newSeries(q)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return a.finish(s, q), err
		}

		g, err := loader.Load(ctx, ref)
		if err == nil {
			err = g.Validate()
		}
		if err != nil {
			a.record(ctx, s, q, GranuleOutcome{GranuleID: ref.ID, Outcome: GranuleUnreadable, Err: err})
			continue
		}
		a.process(ctx, s, q, g)
	}
	return a.finish(s, q), nil
}

func newSeries(q Query) *Series {
	return &Series{
		POI:      q.POI,
		Site:     q.Site,
		Start:    q.Start,
		Samples:  []Sample{},
		Outcomes: []GranuleOutcome{},
	}
}

func (a *Accumulator) process(ctx context.Context, s *Series, q Query, g *Granule) {
	out, sample := evaluate(g, q)
	if sample != nil {
		s.Samples = append(s.Samples, *sample)
	}
	a.record(ctx, s, q, out)
}

func (a *Accumulator) record(ctx context.Context, s *Series, q Query, out GranuleOutcome) {
	s.Outcomes = append(s.Outcomes, out)
	for _, o := range a.observers {
		o.ObserveGranule(ctx, q, out)
	}
}

// evaluate runs one granule through boundary, containment, cell search,
// estimation and time resolution.
func evaluate(g *Granule, q Query) (GranuleOutcome, *Sample) {
	out := GranuleOutcome{GranuleID: g.ID}

	poly := Boundary(g.Grid)
	if poly.Empty() {
		out.Outcome = EmptyPolygon
		return out, nil
	}

	if !Contains(poly, q.POI) {
		out.Outcome = PointNotContained
		return out, nil
	}
	cell, ok := scanCells(g.Grid, q.POI)
	if !ok {
		out.Outcome = CellNotFound
		return out, nil
	}
	out.Cell = &cell

	corners := g.Grid.CellCorners(cell, q.Quality)
	value, method := EstimateMethod(corners, g.Grid.Fill.Value, q.NoData, q.POI)
	out.Method = method
	if method == MethodNone {
		out.Outcome = NoUsableValue
		return out, nil
	}

	ts, err := ResolveTime(g.Times, g.Base, cell.Row)
	if err != nil {
		out.Outcome = GranuleUnreadable
		out.Err = err
		return out, nil
	}

	raw := g.Grid.CellCorners(cell, nil)
	out.Outcome = Recorded
	return out, &Sample{
		Time:      ts,
		Value:     value,
		GranuleID: g.ID,
		Row:       cell.Row,
		Col:       cell.Col,
		Method:    method,
		Corners:   raw[:],
	}
}

// finish applies the ordering option and fills in day offsets.
func (a *Accumulator) finish(s *Series, q Query) *Series {
	if q.SortByTime {
		sort.SliceStable(s.Samples, func(i, j int) bool {
			return s.Samples[i].Time.Before(s.Samples[j].Time)
		})
	}

	if s.Start.IsZero() {
		for i, smp := range s.Samples {
			if i == 0 || smp.Time.Before(s.Start) {
				s.Start = smp.Time
			}
		}
	}
	for i := range s.Samples {
		s.Samples[i].DayOffset = DayOffset(s.Samples[i].Time, s.Start)
	}
	return s
}
