package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rd03d/pkg/rd03d"
	"github.com/robotalks/rd03d/pkg/sim"
)

func TestResult(t *testing.T) {
	testCases := []struct {
		err    error
		result string
	}{
		{nil, "ok"},
		{rd03d.ErrTimeout, "timeout"},
		{&rd03d.AckError{Kind: rd03d.CmdGetMaxFrames, Status: 1}, "ack_error"},
		{rd03d.ErrMode, "mode"},
		{io.ErrClosedPipe, "error"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.result, Result(tc.err), "%v", tc.err)
	}
}

func TestCollector(t *testing.T) {
	dev := sim.NewDevice()
	defer dev.Close()
	session := rd03d.NewSession(dev)
	session.Timeout = 100 * time.Millisecond
	c := NewCollector(session)
	reg := NewRegistry()
	c.Register(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rd03d.NewLink(dev, session).Run(ctx)

	require.NoError(t, session.Configure(ctx, rd03d.AttrMaxFrames, 3))
	dev.MuteNext(1)
	_, err := session.Read(ctx, rd03d.AttrMaxFrames)
	require.ErrorIs(t, err, rd03d.ErrTimeout)
	// leaves config mode so the device reports again.
	require.NoError(t, session.SetOperationMode(ctx, rd03d.ModeReport))

	dev.Emit(rd03d.Targets{{X: 10, Y: 500}, nil, {X: -10, Y: 900}})
	require.Eventually(t, func() bool { return session.Stats().Reports == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, float64(1), testutil.ToFloat64(c.commands.WithLabelValues(rd03d.CmdSetMaxFrames.String(), "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.commands.WithLabelValues(rd03d.CmdGetMaxFrames.String(), "timeout")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.commands.WithLabelValues(rd03d.CmdCloseConfigMode.String(), "ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += "/" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			}
		}
	}
	require.Equal(t, float64(2), values["rd03d_targets_present"])
	require.Equal(t, float64(1), values["rd03d_reports_total"])
	require.Equal(t, float64(1), values["rd03d_frames_total/report"])
	require.Zero(t, values["rd03d_framing_errors_total/overrun"])
	require.Contains(t, values, "go_goroutines")
}

func TestHandler(t *testing.T) {
	session := rd03d.NewSession(io.Discard)
	reg := NewRegistry()
	NewCollector(session).Register(reg)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "rd03d_targets_present 0")
	require.Contains(t, rec.Body.String(), `rd03d_framing_errors_total{reason="resync"} 0`)
}
