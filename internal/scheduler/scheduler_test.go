package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/compliance"
	"fishing-borders/internal/report"
	"fishing-borders/internal/zones"
)

func TestNextDailyAt(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, time.June, 10, 1, 30, 0, 0, ist)
	assert.Equal(t, time.Date(2025, time.June, 10, 2, 0, 0, 0, ist), nextDailyAt(now, ist, 2))
	assert.Equal(t, time.Date(2025, time.June, 11, 0, 0, 0, 0, ist), nextDailyAt(now, ist, 0))
	exact := time.Date(2025, time.June, 10, 2, 0, 0, 0, ist)
	assert.Equal(t, time.Date(2025, time.June, 11, 2, 0, 0, 0, ist), nextDailyAt(exact, ist, 2))
}

type fakeSource struct{ history []alerts.HistoryEntry }

func (f fakeSource) AllHistory() []alerts.HistoryEntry     { return f.history }
func (f fakeSource) ComplianceStatus() compliance.Snapshot { return compliance.EmptySnapshot() }
func (f fakeSource) CurrentZone() *zones.Zone              { return nil }

type fakeSaver struct {
	day time.Time
	r   report.Report
	err error
}

func (f *fakeSaver) SaveReport(ctx context.Context, day time.Time, r report.Report) error {
	f.day, f.r = day, r
	return f.err
}

func TestRunReportOnce(t *testing.T) {
	now := time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)
	src := fakeSource{history: []alerts.HistoryEntry{
		{Alert: compliance.Alert{Severity: compliance.SeverityDanger, CreatedAt: now.Add(-time.Hour)}},
		{Alert: compliance.Alert{Severity: compliance.SeverityWarning, CreatedAt: now.Add(-48 * time.Hour)}},
	}}
	dst := &fakeSaver{}
	r, err := RunReportOnce(context.Background(), src, dst, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, 80, r.Summary.ComplianceScore)
	assert.Equal(t, 1, r.Summary.TotalAlerts)
	assert.Equal(t, time.June, dst.day.Month())
	assert.Equal(t, 10, dst.day.Day())

	dst.err = errors.New("db down")
	_, err = RunReportOnce(context.Background(), src, dst, time.UTC, now)
	assert.Error(t, err)
}
