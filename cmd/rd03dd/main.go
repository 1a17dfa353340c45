package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/rd03d/pkg/env"
	fx "github.com/robotalks/rd03d/pkg/framework"
	"github.com/robotalks/rd03d/pkg/metrics"
	"github.com/robotalks/rd03d/pkg/mqtt"
	"github.com/robotalks/rd03d/pkg/rd03d"
	"github.com/robotalks/rd03d/pkg/serial"
	"github.com/robotalks/rd03d/pkg/stream"
)

func init() {
	env.SetupFlags()
	serial.SetupFlags()
	rd03d.SetupFlags()
	env.RegisterSection("sensor", env.Default())
	env.RegisterSection("serial", serial.Default())
	env.RegisterSection("rd03d", rd03d.Default())
}

func main() {
	if err := env.ParseFlags(); err != nil {
		glog.Exitf("config: %v", err)
	}
	defer glog.Flush()

	conf := env.NewConfig()
	sensorConf := rd03d.NewConfig()
	sensor, err := serial.NewConfig().OpenSensor(sensorConf)
	if err != nil {
		glog.Exit(err)
	}
	session := sensor.Session
	collector := metrics.NewCollector(session)
	hub := stream.NewHub()
	session.AddReportHandler(hub)

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("sensor", sensor))

	setupCtx, cancel := context.WithCancel(runner.Context)
	err = session.Setup(setupCtx, sensorConf)
	cancel()
	if err != nil {
		runner.Stop()
		runner.Wait()
		glog.Exitf("setup: %v", err)
	}

	if conf.MQTTURL != "" {
		reg, err := mqtt.NewRegistrar(conf.MQTTURL, mqtt.Meta{
			ID:          conf.SensorID(),
			Port:        sensor.Name,
			Description: conf.Description,
		}, session)
		if err != nil {
			runner.Stop()
			runner.Wait()
			glog.Exitf("mqtt: %v", err)
		}
		runner.Go(reg)
		glog.Infof("registered as %s on %s", conf.SensorID(), conf.MQTTURL)
	}

	if conf.HTTPAddr != "" {
		reg := metrics.NewRegistry()
		collector.Register(reg)
		mux := http.NewServeMux()
		mux.Handle("/targets", hub.Handler())
		mux.Handle("/cmd", stream.CommandHandler(session))
		mux.Handle("/metrics", metrics.Handler(reg))
		server := &http.Server{Addr: conf.HTTPAddr, Handler: mux}
		runner.Go(fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
			glog.Infof("serving on %s", conf.HTTPAddr)
			return fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
		})))
	}

	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
