package tags

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coretags "github.com/Sukarth/wastewater-optimization/core/tags"
	"github.com/Sukarth/wastewater-optimization/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT tag transport.
type Config struct {
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	AckTopic   string          `json:"ack_topic"`
	ModeTopic  string          `json:"mode_topic"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	TLSConfig  *tls.Config     `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// MqttTags implements the tag Writer and Reader over Eclipse Paho. Setpoints
// are published per pump, acknowledgments and the operating mode arrive on
// subscribed topics.
type MqttTags struct {
	cli       pahoClient
	ackTopic  string
	modeTopic string
	qos       map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	mode       coretags.Mode
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewMqttTags connects to the MQTT broker and subscribes to the ACK and mode
// topics.
func NewMqttTags(cfg Config) (*MqttTags, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_tags")
	mt := &MqttTags{
		ackTopic:   cfg.AckTopic,
		modeTopic:  cfg.ModeTopic,
		ackChans:   make(map[string]chan struct{}),
		mode:       coretags.ModeAuto,
		logger:     log,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		qos := byte(0)
		if q, ok := mt.qos["ack"]; ok {
			qos = q
		}
		if token := c.Subscribe(mt.ackTopic, qos, mt.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
		if mt.modeTopic != "" {
			if token := c.Subscribe(mt.modeTopic, qos, mt.onMode); token.Wait() && token.Error() != nil {
				log.Errorf("mode subscribe error: %v", token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	mt.cli = c
	return mt, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (m *MqttTags) onAck(_ paho.Client, msg paho.Message) {
	var p struct {
		CommandID string `json:"command_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		m.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	m.mu.Lock()
	ch, ok := m.ackChans[p.CommandID]
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		m.logger.Infof("received ack %s", p.CommandID)
	}
	m.mu.Unlock()
}

func (m *MqttTags) onMode(_ paho.Client, msg paho.Message) {
	mode, err := coretags.ParseMode(string(msg.Payload()))
	if err != nil {
		m.logger.Errorf("ignoring mode update: %v", err)
		return
	}
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
	m.logger.Infof("operating mode is now %s", mode)
}

// WriteSetpoint publishes a flow setpoint to the pump specific topic and
// returns the command identifier used for acknowledgment tracking.
func (m *MqttTags) WriteSetpoint(pumpID string, flowM3h float64) (string, error) {
	cmdID := uuid.NewString()
	setpoint := struct {
		CommandID string  `json:"command_id"`
		PumpID    string  `json:"pump_id"`
		FlowM3h   float64 `json:"flow_m3h"`
		Timestamp int64   `json:"timestamp"`
	}{
		CommandID: cmdID,
		PumpID:    pumpID,
		FlowM3h:   flowM3h,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(setpoint)
	if err != nil {
		return "", err
	}

	topic := fmt.Sprintf("pump/%s/setpoint", pumpID)
	qos := byte(0)
	if q, ok := m.qos["setpoint"]; ok {
		qos = q
	}
	if m.maxRetries <= 0 {
		m.maxRetries = 3
	}
	if m.backoff <= 0 {
		m.backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		token := m.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			m.logger.Infof("sent setpoint %s to %s", cmdID, topic)
			break
		}
		m.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(m.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		return "", publishErr
	}

	m.mu.Lock()
	m.ackChans[cmdID] = make(chan struct{}, 1)
	m.mu.Unlock()

	return cmdID, nil
}

// WaitForAck blocks until an ACK for the given command ID is received or the
// timeout expires.
func (m *MqttTags) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	ch, ok := m.ackChans[commandID]
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("unknown command id %s", commandID)
	}
	defer func() {
		m.mu.Lock()
		delete(m.ackChans, commandID)
		m.mu.Unlock()
	}()
	select {
	case <-ch:
		return true, nil
	case <-time.After(timeout):
		return false, coretags.ErrAckTimeout
	}
}

// Mode returns the last operating mode received on the mode topic.
func (m *MqttTags) Mode() (coretags.Mode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode, nil
}

// Disconnect closes the broker connection.
func (m *MqttTags) Disconnect() {
	if m.cli != nil && m.cli.IsConnected() {
		m.cli.Disconnect(250)
	}
}
