package main

import (
	"context"
	"log"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/p-org/prt-go/process"
	"github.com/p-org/prt-go/value"
)

// mqttBridge subscribes to an inbound topic carrying integer PING
// payloads and republishes every "send" the demo process logs as an
// outbound MQTT message, demonstrating Send's ordering guarantees
// under a concurrent external producer the way a real P host (an
// MQTT-connected device) would drive the runtime.
type mqttBridge struct {
	client mqtt.Client
}

const (
	mqttInboundTopic  = "prt/ping"
	mqttOutboundTopic = "prt/events"
)

func newMQTTBridge(broker string, pr *process.Process) (*mqttBridge, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("prtsim")
	opts.SetAutoReconnect(true)

	b := &mqttBridge{}
	opts.SetDefaultPublishHandler(func(c mqtt.Client, msg mqtt.Message) {
		n, err := strconv.ParseInt(string(msg.Payload()), 10, 64)
		if err != nil {
			log.Printf("prtsim: mqtt: bad PING payload %q: %v", msg.Payload(), err)
			return
		}
		aID := value.MID{ProcessGUID: "prtsim-1", Index: 1, SymbolicName: "A"}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pr.Send(ctx, nil, aID, evPong, []value.Arg{value.CloneArg(value.NewInt(n))}); err != nil {
			log.Printf("prtsim: mqtt: send: %v", err)
		}
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	b.client = client

	if token := client.Subscribe(mqttInboundTopic, 0, nil); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, token.Error()
	}

	return b, nil
}

// publish forwards an observed dispatch event out over MQTT; wired
// from main's logFun whenever -mqtt is set.
func (b *mqttBridge) publish(payload string) {
	b.client.Publish(mqttOutboundTopic, 0, false, payload)
}

func (b *mqttBridge) Close() {
	b.client.Unsubscribe(mqttInboundTopic)
	b.client.Disconnect(250)
}
