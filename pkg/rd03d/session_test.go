package rd03d_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rd03d/pkg/rd03d"
	"github.com/robotalks/rd03d/pkg/sim"
)

type sessionTestEnv struct {
	dev     *sim.Device
	session *rd03d.Session
	cancel  context.CancelFunc
}

func newSessionTestEnv(t *testing.T) *sessionTestEnv {
	dev := sim.NewDevice()
	env := &sessionTestEnv{dev: dev, session: rd03d.NewSession(dev)}
	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	go rd03d.NewLink(dev, env.session).Run(ctx)
	t.Cleanup(env.close)
	return env
}

func (e *sessionTestEnv) close() {
	e.cancel()
	e.dev.Close()
}

func TestSessionAutoOpensConfigMode(t *testing.T) {
	env := newSessionTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.session.Configure(ctx, rd03d.AttrMaxDistance, 600))
	require.Equal(t, []rd03d.CommandKind{rd03d.CmdOpenConfigMode, rd03d.CmdSetMaxDistance}, env.dev.Commands())
	require.True(t, env.session.OperationMode().InConfig())
	require.Equal(t, int32(600), env.dev.Attribute(rd03d.AttrMaxDistance))
	require.Equal(t, int32(600), env.session.Attributes()[rd03d.AttrMaxDistance])

	// already open
	val, err := env.session.Read(ctx, rd03d.AttrMaxDistance)
	require.NoError(t, err)
	require.Equal(t, int32(600), val)
	require.Len(t, env.dev.Commands(), 3)
}

func TestSessionOperationModeClosesConfig(t *testing.T) {
	env := newSessionTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.session.SetOperationMode(ctx, rd03d.ModeRun))
	require.Equal(t, []rd03d.CommandKind{
		rd03d.CmdOpenConfigMode,
		rd03d.CmdSetReportMode,
		rd03d.CmdCloseConfigMode,
	}, env.dev.Commands())
	require.Equal(t, rd03d.ModeRun, env.session.OperationMode())
	require.False(t, env.dev.InConfig())

	err := env.session.SetOperationMode(ctx, rd03d.ModeRun|rd03d.ModeConfig)
	require.ErrorIs(t, err, rd03d.ErrMode)
}

func TestSessionCloseOutsideConfig(t *testing.T) {
	env := newSessionTestEnv(t)
	_, err := env.session.SendCommand(context.Background(), rd03d.CmdCloseConfigMode, 0)
	require.ErrorIs(t, err, rd03d.ErrMode)
	require.Empty(t, env.dev.Commands())
}

func TestSessionTimeoutIsRetryable(t *testing.T) {
	env := newSessionTestEnv(t)
	env.session.Timeout = 50 * time.Millisecond
	ctx := context.Background()

	env.dev.MuteNext(1)
	_, err := env.session.Read(ctx, rd03d.AttrMinFrames)
	require.ErrorIs(t, err, rd03d.ErrTimeout)
	require.True(t, rd03d.IsRetryable(err))
	require.False(t, env.session.OperationMode().InConfig())

	val, err := env.session.Read(ctx, rd03d.AttrMinFrames)
	require.NoError(t, err)
	require.Equal(t, int32(1), val)

	stats := env.session.Stats()
	require.Equal(t, uint64(1), stats.Timeouts)
	require.Equal(t, uint64(3), stats.Commands)
}

func TestSessionAckFailure(t *testing.T) {
	env := newSessionTestEnv(t)
	ctx := context.Background()

	ack, err := env.session.SendCommand(ctx, rd03d.CmdOpenConfigMode, 0)
	require.NoError(t, err)
	require.Equal(t, rd03d.ProtocolVersion, ack.Protocol)
	require.Equal(t, rd03d.AckBufferSize, ack.BufferSize)

	env.dev.FailNext(rd03d.StatusFailure)
	err = env.session.Configure(ctx, rd03d.AttrDelayTime, 20)
	require.ErrorIs(t, err, rd03d.ErrAckMismatch)
	var ackErr *rd03d.AckError
	require.True(t, errors.As(err, &ackErr))
	require.Equal(t, rd03d.StatusFailure, ackErr.Status)
	_, ok := env.session.Attributes()[rd03d.AttrDelayTime]
	require.False(t, ok)

	require.NoError(t, env.session.Configure(ctx, rd03d.AttrDelayTime, 20))
	require.Equal(t, uint64(1), env.session.Stats().AckErrors)
}

func TestSessionSurvivesNoise(t *testing.T) {
	env := newSessionTestEnv(t)
	env.dev.Inject([]byte{0xfd, 0xfc, 0x00, 0xaa, 0xff, 0x03, 0x01, 0x55})
	require.NoError(t, env.session.SetDetectionMode(context.Background(), rd03d.DetectionSingle))
	require.Equal(t, rd03d.DetectionSingle, env.session.DetectionMode())
	require.Equal(t, rd03d.DetectionSingle, env.dev.DetectionMode())
	require.NotZero(t, env.session.Stats().Sync.Resyncs)
}

func TestSessionConcurrentCommands(t *testing.T) {
	env := newSessionTestEnv(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, rd03d.NumAttributes)
	for attr := rd03d.Attribute(0); attr < rd03d.NumAttributes; attr++ {
		wg.Add(1)
		go func(attr rd03d.Attribute) {
			defer wg.Done()
			_, err := env.session.Read(ctx, attr)
			errs <- err
		}(attr)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, env.session.Attributes(), rd03d.NumAttributes)
}

func TestSessionReports(t *testing.T) {
	env := newSessionTestEnv(t)
	reportCh := make(chan rd03d.Targets, 1)
	env.session.AddReportHandler(rd03d.HandleReportFunc(func(targets rd03d.Targets) {
		select {
		case reportCh <- targets:
		default:
		}
	}))

	require.Equal(t, rd03d.Targets{}, env.session.PollTargets())
	targets := rd03d.Targets{nil, {X: -120, Y: 900, Speed: 5, Distance: 908}}
	env.dev.Emit(targets)
	select {
	case received := <-reportCh:
		require.Equal(t, targets, received)
	case <-time.After(time.Second):
		t.Fatal("no report")
	}
	require.Equal(t, targets, env.session.PollTargets())
	require.Equal(t, uint8(0x2), env.session.PollTargets().Proximity())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				env.dev.Emit(rd03d.Targets{{X: 1, Y: 2, Distance: 2}})
			}
		}
	}()
	received, err := env.session.WaitReport(ctx)
	require.NoError(t, err)
	require.Equal(t, &rd03d.Target{X: 1, Y: 2, Distance: 2}, received[0])
}

func TestSessionWaitReportTimeout(t *testing.T) {
	env := newSessionTestEnv(t)
	env.session.Timeout = 20 * time.Millisecond
	_, err := env.session.WaitReport(context.Background())
	require.ErrorIs(t, err, rd03d.ErrTimeout)
}

func TestSessionSetup(t *testing.T) {
	testCases := []struct {
		name  string
		conf  func(*rd03d.Config)
		check func(*testing.T, *sessionTestEnv)
	}{
		{
			name: "read attributes",
			conf: func(c *rd03d.Config) {},
			check: func(t *testing.T, env *sessionTestEnv) {
				attrs := env.session.Attributes()
				require.Equal(t, int32(700), attrs[rd03d.AttrMaxDistance])
				require.Equal(t, int32(10), attrs[rd03d.AttrDelayTime])
			},
		},
		{
			name: "write attributes",
			conf: func(c *rd03d.Config) {
				c.WriteAttributes = true
				c.MinDistance, c.MaxDistance = 100, 500
				c.DetectionName = "single"
			},
			check: func(t *testing.T, env *sessionTestEnv) {
				require.Equal(t, int32(100), env.dev.Attribute(rd03d.AttrMinDistance))
				require.Equal(t, int32(500), env.dev.Attribute(rd03d.AttrMaxDistance))
				require.Equal(t, rd03d.DetectionSingle, env.dev.DetectionMode())
				require.Equal(t, rd03d.DetectionSingle, env.session.DetectionMode())
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newSessionTestEnv(t)
			env.dev.SetAttribute(rd03d.AttrMaxDistance, 700)
			conf := rd03d.NewConfig()
			tc.conf(conf)
			require.NoError(t, conf.Valid())
			require.NoError(t, env.session.Setup(context.Background(), conf))

			commands := env.dev.Commands()
			require.Len(t, commands, 9)
			require.Equal(t, rd03d.CmdOpenConfigMode, commands[0])
			require.Equal(t, rd03d.CmdCloseConfigMode, commands[8])
			require.Equal(t, rd03d.ModeReport, env.session.OperationMode())
			require.False(t, env.dev.InConfig())
			tc.check(t, env)
		})
	}
}

func TestSessionStrayFrames(t *testing.T) {
	s := rd03d.NewSession(io.Discard)
	s.OnBytes(rd03d.EncodeAck(rd03d.CmdOpenConfigMode, 0))
	stats := s.Stats()
	require.Equal(t, uint64(1), stats.StrayFrames)
	require.Equal(t, uint64(1), stats.Sync.CommandFrames)
}

func TestConfigValid(t *testing.T) {
	conf := rd03d.NewConfig()
	conf.ModeName = "debug"
	conf.DetectionName = "single"
	require.NoError(t, conf.Valid())
	require.Equal(t, rd03d.ModeDebug, conf.Mode)
	require.Equal(t, rd03d.DetectionSingle, conf.Detection)

	conf.ModeName = "config"
	require.Error(t, conf.Valid())

	conf = rd03d.NewConfig()
	conf.WriteAttributes = true
	conf.MinFrames, conf.MaxFrames = 9, 2
	require.Error(t, conf.Valid())
}

// scriptedWriter hands every command written by the session to a test
// goroutine acting as the sensor.
type scriptedWriter struct {
	frames chan []byte
}

func (w *scriptedWriter) Write(p []byte) (int, error) {
	w.frames <- append([]byte(nil), p...)
	return len(p), nil
}

func (w *scriptedWriter) expect(t *testing.T, kind rd03d.CommandKind) {
	select {
	case frame := <-w.frames:
		got, _, err := rd03d.DecodeCommand(frame)
		assert.NoError(t, err)
		assert.Equal(t, kind, got)
	case <-time.After(time.Second):
		t.Errorf("%s not sent", kind)
	}
}

func TestSessionLateAckAfterTimeout(t *testing.T) {
	w := &scriptedWriter{frames: make(chan []byte, 4)}
	session := rd03d.NewSession(w)
	session.Timeout = 50 * time.Millisecond
	ctx := context.Background()

	go func() {
		w.expect(t, rd03d.CmdOpenConfigMode)
		session.OnBytes(rd03d.EncodeAck(rd03d.CmdOpenConfigMode, 0))
		// the sensor is slow with this one.
		w.expect(t, rd03d.CmdGetMinFrames)
		w.expect(t, rd03d.CmdGetMaxFrames)
		session.OnBytes(rd03d.EncodeAck(rd03d.CmdGetMinFrames, 1))
		session.OnBytes(rd03d.EncodeAck(rd03d.CmdGetMaxFrames, 5))
	}()

	_, err := session.Read(ctx, rd03d.AttrMinFrames)
	require.ErrorIs(t, err, rd03d.ErrTimeout)

	val, err := session.Read(ctx, rd03d.AttrMaxFrames)
	require.NoError(t, err)
	require.Equal(t, int32(5), val)
	require.Equal(t, map[rd03d.Attribute]int32{rd03d.AttrMaxFrames: 5}, session.Attributes())
	require.Equal(t, uint64(1), session.Stats().StrayFrames)
}

func TestSessionOwedAckExpires(t *testing.T) {
	w := &scriptedWriter{frames: make(chan []byte, 4)}
	session := rd03d.NewSession(w)
	session.Timeout = 50 * time.Millisecond
	ctx := context.Background()

	go func() {
		w.expect(t, rd03d.CmdOpenConfigMode)
		session.OnBytes(rd03d.EncodeAck(rd03d.CmdOpenConfigMode, 0))
		// never answered.
		w.expect(t, rd03d.CmdGetMinFrames)
		w.expect(t, rd03d.CmdGetMinFrames)
		session.OnBytes(rd03d.EncodeAck(rd03d.CmdGetMinFrames, 2))
	}()

	_, err := session.Read(ctx, rd03d.AttrMinFrames)
	require.ErrorIs(t, err, rd03d.ErrTimeout)
	time.Sleep(2 * session.Timeout)

	val, err := session.Read(ctx, rd03d.AttrMinFrames)
	require.NoError(t, err)
	require.Equal(t, int32(2), val)
	require.Zero(t, session.Stats().StrayFrames)
}
