// Package mqtt shows messages from MQTT topic, one frame per message.
// Topic `T` payload is text, `T/int` decimal number, `T/qr` QR code text.
package mqtt

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"
	"github.com/temoto/alive/v2"
	"github.com/temoto/oledlog/cmd/oledlog/subcmd"
	"github.com/temoto/oledlog/displaylog"
	"github.com/temoto/oledlog/helpers"
	"github.com/temoto/oledlog/log2"
	"github.com/temoto/oledlog/state"
)

const modName = "mqtt"

var Mod = subcmd.Mod{Name: modName, Usage: "show messages from mqtt.topic until SIGINT/SIGTERM", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	if config.Mqtt.Broker == "" {
		return errors.NotValidf("config: mqtt.broker empty")
	}
	d := g.MustDisplay()
	defer g.Shutdown()

	log := g.Log.Clone(log2.LInfo)
	if config.Mqtt.LogDebug {
		log.SetLevel(log2.LDebug)
	}
	sub := newSubscriber(log, g.Alive, d, &config.Mqtt)
	if err := sub.connect(); err != nil {
		return errors.Annotate(err, "mqtt")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		g.Log.Infof("signal=%v stopping", sig)
		g.Alive.Stop()
	}()

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Infof("mqtt broker=%s topic=%s running", config.Mqtt.Broker, config.Mqtt.Topic)
	g.Alive.Wait()
	subcmd.SdNotify(daemon.SdNotifyStopping)
	sub.close()
	return nil
}

type subscriber struct {
	log    *log2.Log
	alive  *alive.Alive
	d      *displaylog.Logger
	config *state.MqttConfig
	m      mqtt.Client
}

func newSubscriber(log *log2.Log, a *alive.Alive, d *displaylog.Logger, config *state.MqttConfig) *subscriber {
	return &subscriber{log: log, alive: a, d: d, config: config}
}

func (self *subscriber) filters() map[string]byte {
	qos := byte(self.config.QoS)
	return map[string]byte{
		self.config.Topic:          qos,
		self.config.Topic + "/int": qos,
		self.config.Topic + "/qr":  qos,
	}
}

func (self *subscriber) connect() error {
	mqtt.ERROR = self.log
	mqtt.CRITICAL = self.log
	if self.log.Enabled(log2.LDebug) {
		mqtt.WARN = self.log
	}

	keepAlive := helpers.IntSecondDefault(self.config.KeepaliveSec, 30*time.Second)
	opt := mqtt.NewClientOptions().
		AddBroker(self.config.Broker).
		SetClientID(self.config.ClientID).
		SetUsername(self.config.Username).
		SetPassword(self.config.Password).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetPingTimeout(keepAlive / 2).
		SetAutoReconnect(true).
		SetOnConnectHandler(self.onConnect).
		SetConnectionLostHandler(self.onConnectionLost)
	self.m = mqtt.NewClient(opt)
	token := self.m.Connect()
	if token.Wait() && token.Error() != nil {
		return errors.Annotatef(token.Error(), "connect broker=%s", self.config.Broker)
	}
	return nil
}

func (self *subscriber) close() {
	if self.m == nil {
		return
	}
	filters := self.filters()
	topics := make([]string, 0, len(filters))
	for t := range filters {
		topics = append(topics, t)
	}
	if token := self.m.Unsubscribe(topics...); token.WaitTimeout(time.Second) && token.Error() != nil {
		self.log.Errorf("mqtt unsubscribe err=%v", token.Error())
	}
	self.m.Disconnect(250)
}

// onConnect runs after every (re)connect, clean session needs subscribe again.
func (self *subscriber) onConnect(c mqtt.Client) {
	self.log.Debugf("mqtt connect")
	if token := c.SubscribeMultiple(self.filters(), self.onMessage); token.Wait() && token.Error() != nil {
		self.log.Errorf("mqtt subscribe topic=%s err=%v", self.config.Topic, token.Error())
	}
}

func (self *subscriber) onConnectionLost(c mqtt.Client, err error) {
	self.log.Errorf("mqtt connection lost err=%v", err)
}

func (self *subscriber) onMessage(c mqtt.Client, msg mqtt.Message) {
	self.handle(msg.Topic(), msg.Payload())
}

func (self *subscriber) handle(topic string, payload []byte) {
	if !self.alive.Add(1) {
		self.log.Debugf("mqtt message topic=%s dropped, stopping", topic)
		return
	}
	defer self.alive.Done()

	self.log.Debugf("mqtt message topic=%s payload=%q", topic, payload)
	var err error
	switch strings.TrimPrefix(topic, self.config.Topic) {
	case "":
		err = self.d.Write(string(payload))
	case "/int":
		var n int64
		n, err = strconv.ParseInt(strings.TrimSpace(string(payload)), 10, 64)
		if err == nil {
			err = self.d.WriteInt(n)
		}
	case "/qr":
		err = self.d.WriteQR(string(payload), false, qrcode.Medium)
	default:
		err = errors.NotSupportedf("mqtt topic=%s", topic)
	}
	if err != nil {
		self.log.Errorf("mqtt message topic=%s err=%v", topic, err)
	}
}
