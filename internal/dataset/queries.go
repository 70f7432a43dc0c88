package dataset

import (
	"context"
	"errors"
	"fmt"

	"hodlflow/internal/analyze"
	"hodlflow/internal/indicator"
	"hodlflow/internal/resample"
	"hodlflow/internal/sanitize"
	"hodlflow/models"
)

// ErrUnknownField is returned for metric names the snapshot schema does not
// carry.
var ErrUnknownField = errors.New("unknown metric field")

// ChartData is a chart-ready view of a range: sanitized, chronological and
// thinned to the configured point budget. MarketCaps and Relative are aligned
// index-for-index with Snapshots.
type ChartData struct {
	RangeKey   string                `json:"range_key"`
	Snapshots  []models.Snapshot     `json:"snapshots"`
	MarketCaps []*float64            `json:"market_caps"`
	Relative   map[string][]*float64 `json:"relative"`
}

// IndicatorSet carries one metric's indicator series, aligned index-for-index
// with Timestamps.
type IndicatorSet struct {
	Field           string          `json:"field"`
	Period          int             `json:"period"`
	BollingerPeriod int             `json:"bollinger_period"`
	Timestamps      []models.Time   `json:"timestamps"`
	Values          []*float64      `json:"values"`
	SMA             []*float64      `json:"sma"`
	EMA             []*float64      `json:"ema"`
	Bollinger       indicator.Bands `json:"bollinger"`
}

// Summary condenses a range for dashboard cards.
type Summary struct {
	RangeKey     string              `json:"range_key"`
	Latest       *models.Snapshot    `json:"latest"`
	MarketCap    *float64            `json:"market_cap"`
	PriceDelta   analyze.MetricDelta `json:"price_delta"`
	HoldersDelta analyze.MetricDelta `json:"holders_delta"`
	EventCount   int                 `json:"event_count"`
	RankingSize  int                 `json:"ranking_size"`
}

// chartSnapshots returns the range's snapshots oldest-first, scrubbed and
// thinned.
func (s *Service) chartSnapshots(ctx context.Context, r models.DataRange) (*models.CachedDataset, []models.Snapshot, error) {
	ds, err := s.Dataset(ctx, r)
	if err != nil {
		return nil, nil, err
	}

	chron := make([]models.Snapshot, len(ds.Snapshots))
	for i := range ds.Snapshots {
		chron[len(ds.Snapshots)-1-i] = ds.Snapshots[i]
	}
	chron = sanitize.Chartable(chron)
	chron = resample.Snapshots(chron, s.cfg.Chart.MaxPoints)
	return ds, chron, nil
}

// ChartData builds the multi-asset chart view for a range.
func (s *Service) ChartData(ctx context.Context, r models.DataRange) (*ChartData, error) {
	ds, chron, err := s.chartSnapshots(ctx, r)
	if err != nil {
		return nil, err
	}

	out := &ChartData{
		RangeKey:   ds.RangeKey,
		Snapshots:  chron,
		MarketCaps: make([]*float64, len(chron)),
		Relative:   make(map[string][]*float64, len(models.PriceFields)),
	}
	for i := range chron {
		out.MarketCaps[i] = analyze.MarketCap(chron[i].Price)
	}
	for _, field := range models.PriceFields {
		vals := fieldSeries(chron, field)
		out.Relative[field] = analyze.RelativeSeries(vals)
	}
	return out, nil
}

// Indicators computes SMA, EMA and Bollinger bands for one metric over a
// range. The look-back periods follow the range length.
func (s *Service) Indicators(ctx context.Context, r models.DataRange, field string) (*IndicatorSet, error) {
	if !models.KnownField(field) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	_, chron, err := s.chartSnapshots(ctx, r)
	if err != nil {
		return nil, err
	}

	days := r.Days(s.nowFn())
	period := indicator.PeriodFor(days)
	bollPeriod := indicator.BollingerPeriodFor(days)

	values := fieldSeries(chron, field)
	out := &IndicatorSet{
		Field:           field,
		Period:          period,
		BollingerPeriod: bollPeriod,
		Timestamps:      make([]models.Time, len(chron)),
		Values:          values,
		SMA:             indicator.SMA(values, period),
		EMA:             indicator.EMA(values, period),
		Bollinger:       indicator.Bollinger(values, bollPeriod),
	}
	for i := range chron {
		out.Timestamps[i] = chron[i].CreatedAt
	}
	return out, nil
}

// HolderEvents returns the unified, delta-reconciled event feed for a range,
// newest-first.
func (s *Service) HolderEvents(ctx context.Context, r models.DataRange) ([]models.HolderEvent, error) {
	ds, err := s.Dataset(ctx, r)
	if err != nil {
		return nil, err
	}
	return analyze.ReconcileHolderEvents(ds.ChangeEvents, ds.RemovalEvents), nil
}

// Ranking returns the current leaderboard for a range.
func (s *Service) Ranking(ctx context.Context, r models.DataRange) ([]models.AddressRanking, error) {
	ds, err := s.Dataset(ctx, r)
	if err != nil {
		return nil, err
	}
	return ds.Ranking, nil
}

// MetricDelta summarizes one metric's movement across a range.
func (s *Service) MetricDelta(ctx context.Context, r models.DataRange, field string) (analyze.MetricDelta, error) {
	if !models.KnownField(field) {
		return analyze.MetricDelta{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	_, chron, err := s.chartSnapshots(ctx, r)
	if err != nil {
		return analyze.MetricDelta{}, err
	}
	return analyze.SnapshotMetricDelta(chron, field), nil
}

// Compare splits a range's series in half and compares the means of one
// metric.
func (s *Service) Compare(ctx context.Context, r models.DataRange, field string) (analyze.PeriodComparison, error) {
	if !models.KnownField(field) {
		return analyze.PeriodComparison{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	_, chron, err := s.chartSnapshots(ctx, r)
	if err != nil {
		return analyze.PeriodComparison{}, err
	}
	return analyze.ComparePeriods(chron, field), nil
}

// Summarize builds the dashboard card view for a range.
func (s *Service) Summarize(ctx context.Context, r models.DataRange) (*Summary, error) {
	ds, chron, err := s.chartSnapshots(ctx, r)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		RangeKey:     ds.RangeKey,
		PriceDelta:   analyze.SnapshotMetricDelta(chron, "price"),
		HoldersDelta: analyze.SnapshotMetricDelta(chron, "holders"),
		EventCount:   len(ds.ChangeEvents) + len(ds.RemovalEvents),
		RankingSize:  len(ds.Ranking),
	}
	if latest := ds.Latest(); latest != nil {
		clean := sanitize.Snapshot(*latest)
		sum.Latest = &clean
		sum.MarketCap = analyze.MarketCap(clean.Price)
	}
	return sum, nil
}

func fieldSeries(snaps []models.Snapshot, field string) []*float64 {
	out := make([]*float64, len(snaps))
	for i := range snaps {
		out[i] = snaps[i].Field(field)
	}
	return out
}
