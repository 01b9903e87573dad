package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"coinboard-api/internal/model"
	"coinboard-api/internal/repo"
	marketpkg "coinboard-api/pkg/market"
)

type fakeProvider struct {
	mu gosync.Mutex

	quotes    []marketpkg.Quote
	quotesErr error
	listCalls int

	historyErrFor map[string]error
	// historyErrCalls fails specific call numbers (1-based, per code).
	historyErrCalls map[string][]int
	historyCalls    map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		historyErrFor:   make(map[string]error),
		historyErrCalls: make(map[string][]int),
		historyCalls:    make(map[string]int),
	}
}

func (p *fakeProvider) ListQuotes(ctx context.Context, limit int) ([]marketpkg.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	if p.quotesErr != nil {
		return nil, p.quotesErr
	}
	if limit > len(p.quotes) {
		limit = len(p.quotes)
	}
	return append([]marketpkg.Quote(nil), p.quotes[:limit]...), nil
}

func (p *fakeProvider) History(ctx context.Context, code string, start, end time.Time) ([]marketpkg.HistoryPoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.historyCalls[code]++
	if err, ok := p.historyErrFor[code]; ok {
		return nil, err
	}
	for _, n := range p.historyErrCalls[code] {
		if p.historyCalls[code] == n {
			return nil, fmt.Errorf("transient upstream failure on call %d", n)
		}
	}
	span := end.Sub(start)
	points := make([]marketpkg.HistoryPoint, 0, 4)
	for i := 0; i < 4; i++ {
		at := start.Add(span * time.Duration(i) / 4)
		points = append(points, marketpkg.HistoryPoint{
			Date: at.UnixMilli(),
			Rate: 100 + float64(i),
		})
	}
	return points, nil
}

func (p *fakeProvider) callsFor(code string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.historyCalls[code]
}

type fakeSnapshots struct {
	mu gosync.Mutex

	rows        map[string]model.CoinSnapshot
	upsertErr   map[string]error
	trackedErr  error
	upsertCalls int
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{
		rows:      make(map[string]model.CoinSnapshot),
		upsertErr: make(map[string]error),
	}
}

func (f *fakeSnapshots) Upsert(ctx context.Context, snap *model.CoinSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if snap == nil || strings.TrimSpace(snap.Code) == "" {
		return errors.New("code is required")
	}
	if err, ok := f.upsertErr[snap.Code]; ok {
		return err
	}
	stored := *snap
	stored.LastUpdated = time.Now()
	f.rows[snap.Code] = stored
	return nil
}

func (f *fakeSnapshots) Get(ctx context.Context, code string) (*model.CoinSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[strings.ToUpper(code)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (f *fakeSnapshots) List(ctx context.Context) ([]model.CoinSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]model.CoinSnapshot, 0, len(f.rows))
	for _, row := range f.rows {
		result = append(result, row)
	}
	sort.Slice(result, func(i, j int) bool {
		ci, cj := result[i].Cap, result[j].Cap
		switch {
		case ci == nil:
			return false
		case cj == nil:
			return true
		default:
			return *ci > *cj
		}
	})
	return result, nil
}

func (f *fakeSnapshots) TrackedCodes(ctx context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackedErr != nil {
		return nil, f.trackedErr
	}
	type ranked struct {
		code string
		cap  float64
	}
	capped := make([]ranked, 0, len(f.rows))
	for code, row := range f.rows {
		if row.Cap == nil {
			continue
		}
		capped = append(capped, ranked{code: code, cap: *row.Cap})
	}
	sort.Slice(capped, func(i, j int) bool { return capped[i].cap > capped[j].cap })
	if limit > 0 && len(capped) > limit {
		capped = capped[:limit]
	}
	codes := make([]string, 0, len(capped))
	for _, r := range capped {
		codes = append(codes, r.code)
	}
	return codes, nil
}

func (f *fakeSnapshots) snapshot(code string) (model.CoinSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[code]
	return row, ok
}

type fakeHistory struct {
	mu gosync.Mutex

	points    map[string]model.PricePoint
	insertErr error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{points: make(map[string]model.PricePoint)}
}

func historyKey(p model.PricePoint) string {
	return fmt.Sprintf("%s|%d|%s", p.TokenCode, p.Timestamp, p.Timeframe)
}

func (f *fakeHistory) InsertPoints(ctx context.Context, points []model.PricePoint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	inserted := 0
	for _, point := range points {
		key := historyKey(point)
		if _, exists := f.points[key]; exists {
			continue
		}
		f.points[key] = point
		inserted++
	}
	return inserted, nil
}

func (f *fakeHistory) HasPoints(ctx context.Context, code string, timeframe model.Timeframe) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, point := range f.points {
		if point.TokenCode == code && point.Timeframe == timeframe {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHistory) Series(ctx context.Context, code string, timeframe model.Timeframe) ([]model.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]model.PricePoint, 0)
	for _, point := range f.points {
		if point.TokenCode == code && point.Timeframe == timeframe {
			result = append(result, point)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	return result, nil
}

func (f *fakeHistory) count(code string, timeframe model.Timeframe) int {
	series, _ := f.Series(context.Background(), code, timeframe)
	return len(series)
}

func floatp(v float64) *float64 { return &v }
