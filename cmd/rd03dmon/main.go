package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/robotalks/rd03d/pkg/mqtt"
	"github.com/robotalks/rd03d/pkg/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/rd03d/"
	topic   = "#"
)

func init() {
	if val := os.Getenv("RD03D_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic to watch, relative to the prefix.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(topic, mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		msg, typed, err := msgs.Decode(payload)
		if err != nil {
			if typed != nil {
				log.Printf("%s: decode error: (type_id=%x seq=%d) %v", topic, typed.TypeId, typed.Sequence, err)
			} else {
				log.Printf("%s: bad message: %v", topic, err)
			}
			return
		}
		if report, ok := msg.(*msgs.TargetReport); ok {
			log.Printf("%s: %d targets %s", topic, len(report.Targets), report.String())
			return
		}
		log.Printf("%s: #%d [%s] %s", topic, typed.Sequence,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
			msg.(msgs.SerializableMessage).Serializable().String())
	}))
	if err := q.ConnectWait(mqtt.DefaultConnectTimeout); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
