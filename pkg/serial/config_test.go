package serial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	goserial "go.bug.st/serial"

	"github.com/robotalks/rd03d/pkg/rd03d"
)

func TestMode(t *testing.T) {
	testCases := []struct {
		parity   string
		stopBits int
		expect   goserial.Mode
		err      bool
	}{
		{"none", 1, goserial.Mode{BaudRate: 115200, DataBits: 8, Parity: goserial.NoParity, StopBits: goserial.OneStopBit}, false},
		{"Odd", 2, goserial.Mode{BaudRate: 115200, DataBits: 8, Parity: goserial.OddParity, StopBits: goserial.TwoStopBits}, false},
		{"e", 0, goserial.Mode{BaudRate: 115200, DataBits: 8, Parity: goserial.EvenParity, StopBits: goserial.OneStopBit}, false},
		{"mark", 1, goserial.Mode{}, true},
		{"none", 3, goserial.Mode{}, true},
	}
	for _, tc := range testCases {
		conf := NewConfig()
		conf.Parity, conf.StopBits = tc.parity, tc.stopBits
		mode, err := conf.Mode()
		if tc.err {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.expect, *mode)
	}
}

func TestOpenSim(t *testing.T) {
	conf := NewConfig()
	conf.Port = SimPort
	port, err := conf.Open()
	require.NoError(t, err)
	require.NotNil(t, port.Sim)
	require.False(t, port.ReadTimeout)
	require.NoError(t, port.Close())
}

func TestSensorSim(t *testing.T) {
	conf := NewConfig()
	conf.Port = SimPort
	sensor, err := conf.OpenSensor(rd03d.NewConfig())
	require.NoError(t, err)
	require.Equal(t, SimPort, sensor.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	done := make(chan error, 1)
	go func() { done <- sensor.Run(ctx) }()

	require.NoError(t, sensor.Session.Setup(ctx, rd03d.NewConfig()))
	require.Equal(t, map[rd03d.Attribute]int32{
		rd03d.AttrMinDistance: 0,
		rd03d.AttrMaxDistance: 800,
		rd03d.AttrMinFrames:   1,
		rd03d.AttrMaxFrames:   5,
		rd03d.AttrDelayTime:   10,
	}, sensor.Session.Attributes())
	require.Equal(t, rd03d.ModeReport, sensor.Session.OperationMode())

	cancel()
	require.NoError(t, <-done)
}

func TestOpenSensorInvalidConfig(t *testing.T) {
	conf := NewConfig()
	conf.Port = SimPort
	sessionConf := rd03d.NewConfig()
	sessionConf.ModeName = "turbo"
	_, err := conf.OpenSensor(sessionConf)
	require.Error(t, err)
}
