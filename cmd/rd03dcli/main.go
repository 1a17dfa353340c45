package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/robotalks/rd03d/pkg/cli/sh"
	"github.com/robotalks/rd03d/pkg/env"
	"github.com/robotalks/rd03d/pkg/rd03d"
	"github.com/robotalks/rd03d/pkg/serial"
)

var (
	remoteTarget string
	local        bool
)

func init() {
	env.SetupFlags()
	serial.SetupFlags()
	rd03d.SetupFlags()
	env.RegisterSection("sensor", env.Default())
	env.RegisterSection("serial", serial.Default())
	env.RegisterSection("rd03d", rd03d.Default())
	flag.StringVar(&remoteTarget, "remote", remoteTarget, "Sensor ID on MQTT or ws://host:port/cmd to connect.")
	flag.BoolVar(&local, "local", local, "Drive the sensor on the serial port directly.")
}

func main() {
	if err := env.ParseFlags(); err != nil {
		log.Fatalln(err)
	}
	s := sh.New(env.NewConfig())
	if !local {
		s.Target = remoteTarget
		s.Run(flag.Args()...)
		return
	}

	sensor, err := serial.NewConfig().OpenSensor(rd03d.NewConfig())
	if err != nil {
		log.Fatalln(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sensor.Run(ctx) }()
	s.Attach(sensor.Name, sh.Local{Session: sensor.Session}, nil)
	s.Run(flag.Args()...)
	cancel()
	if err := <-done; err != nil {
		log.Println(err)
	}
}
