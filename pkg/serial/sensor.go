package serial

import (
	"context"

	fx "github.com/robotalks/rd03d/pkg/framework"
	"github.com/robotalks/rd03d/pkg/rd03d"
)

// Sensor is an opened port with a Session attached.
type Sensor struct {
	Name    string
	Port    *Port
	Session *rd03d.Session
}

// OpenSensor opens the port and creates a Session on it using conf.
func (c *Config) OpenSensor(conf *rd03d.Config) (*Sensor, error) {
	if err := conf.Valid(); err != nil {
		return nil, err
	}
	port, err := c.Open()
	if err != nil {
		return nil, err
	}
	return &Sensor{
		Name:    c.Port,
		Port:    port,
		Session: conf.NewSession(port),
	}, nil
}

// Run pumps received bytes into the Session until ctx is done, and
// drives the simulated device if any. The port is closed on return.
func (s *Sensor) Run(ctx context.Context) error {
	defer s.Port.Close()
	link := rd03d.NewLink(s.Port, s.Session)
	link.ReadTimeout = s.Port.ReadTimeout
	runner := fx.NewRunnerWith(ctx).Go(link)
	if s.Port.Sim != nil {
		runner.Go(s.Port.Sim)
	}
	return runner.Wait()
}
