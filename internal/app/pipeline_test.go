package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/spoofwatch/internal/gps"
	"github.com/relabs-tech/spoofwatch/internal/logx"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

type fakePublisher struct {
	sent map[string][][]byte
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	if p.sent == nil {
		p.sent = make(map[string][][]byte)
	}
	p.sent[topic] = append(p.sent[topic], payload)
	return nil
}

type fakeSink struct {
	records []spoof.CVRecord
	err     error
}

func (s *fakeSink) Append(rec spoof.CVRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

type scriptedSource struct {
	snaps []gps.Snapshot
}

func (s *scriptedSource) Next() (gps.Snapshot, error) {
	if len(s.snaps) == 0 {
		return gps.Snapshot{}, gps.ErrSourceClosed
	}
	snap := s.snaps[0]
	s.snaps = s.snaps[1:]
	return snap, nil
}

var testTopics = Topics{Fix: "t/fix", Satellites: "t/sats", Status: "t/status"}

// warnSnapshot has a GPS SNR spread of 8.18% and one GLONASS satellite that
// must not count.
func warnSnapshot() gps.Snapshot {
	return gps.Snapshot{
		Fix: gps.Fix{Time: "09:27:50.0000", Validity: "A", Accuracy: 5, Grade: "Good"},
		Satellites: []gps.Satellite{
			{Talker: "GP", PRN: 1, SNR: 40, Used: true},
			{Talker: "GP", PRN: 2, SNR: 44, Used: true},
			{Talker: "GP", PRN: 3, SNR: 36},
			{Talker: "GL", PRN: 70, SNR: 20, Used: true},
		},
	}
}

func testLogger() *logx.Logger {
	return logx.NewLogger("error", "text")
}

func newTestPipeline(pub Publisher, sink RecordSink) *Pipeline {
	p := NewPipeline(spoof.NewDetector(spoof.DefaultPolicy()), testTopics, pub, sink, testLogger())
	p.now = func() time.Time { return time.Date(2026, 10, 19, 9, 27, 50, 0, time.UTC) }
	return p
}

func TestPipelineRunPublishesEveryFix(t *testing.T) {
	pub := &fakePublisher{}
	sink := &fakeSink{}
	p := newTestPipeline(pub, sink)

	src := &scriptedSource{}
	for i := 0; i < 7; i++ {
		src.snaps = append(src.snaps, warnSnapshot())
	}

	require.NoError(t, p.Run(context.Background(), src, 0))

	require.Len(t, sink.records, 7)
	assert.Equal(t, "8.18,09:27:50\n", sink.records[6].Line())

	require.Len(t, pub.sent[testTopics.Status], 7)
	require.Len(t, pub.sent[testTopics.Fix], 7)
	require.Len(t, pub.sent[testTopics.Satellites], 7)

	var first, last spoof.Verdict
	require.NoError(t, json.Unmarshal(pub.sent[testTopics.Status][0], &first))
	require.NoError(t, json.Unmarshal(pub.sent[testTopics.Status][6], &last))
	assert.Equal(t, spoof.Normal, first.Classification)
	assert.Equal(t, spoof.Warning, last.Classification)
	assert.Equal(t, "Warning: Your location might be fake!", last.Message)
	assert.Equal(t, 3, last.Stats.SatelliteCount)

	var sky SkyView
	require.NoError(t, json.Unmarshal(pub.sent[testTopics.Satellites][0], &sky))
	assert.Equal(t, 4, sky.InView)
	assert.Equal(t, 3, sky.InUse)
}

func TestPipelineInsufficientFixStillRecorded(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(nil, sink)

	v, err := p.Handle(gps.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, spoof.Normal, v.Classification)
	assert.False(t, v.Stats.Sufficient())
	require.Len(t, sink.records, 1)
	assert.Equal(t, ",09:27:50\n", sink.records[0].Line())
}

func TestPipelineSinkFailureStopsRun(t *testing.T) {
	p := newTestPipeline(&fakePublisher{}, &fakeSink{err: errors.New("disk full")})

	err := p.Run(context.Background(), &scriptedSource{snaps: []gps.Snapshot{warnSnapshot()}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPipelinePublishFailureIsNotFatal(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(&fakePublisher{err: errors.New("broker gone")}, sink)

	src := &scriptedSource{snaps: []gps.Snapshot{warnSnapshot(), warnSnapshot()}}
	require.NoError(t, p.Run(context.Background(), src, 0))
	assert.Len(t, sink.records, 2)
}

func TestPipelineRunStopsOnCancel(t *testing.T) {
	p := newTestPipeline(nil, &fakeSink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{snaps: []gps.Snapshot{warnSnapshot()}}
	require.NoError(t, p.Run(ctx, src, 0))
	assert.Len(t, src.snaps, 1)
}
