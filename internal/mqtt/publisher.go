package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"dynamic-sky/internal/reconciler"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const deviceID = "dynamic_sky"

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
	logger      zerolog.Logger
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
	Logger      zerolog.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	logger := cfg.Logger.With().Str("component", "mqtt").Logger()
	if !cfg.Enabled {
		return &Publisher{enabled: false, logger: logger}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info().Msg("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
		logger:      logger,
	}, nil
}

func (p *Publisher) topic(name string) string {
	return fmt.Sprintf("%s/sky/%s", p.topicPrefix, name)
}

// statePayloads are the per-field topics published after every tick.
func statePayloads(s reconciler.Snapshot) map[string]string {
	return map[string]string{
		"phase":         s.State.Phase.String(),
		"sun_visible":   strconv.FormatBool(s.State.SunVisible),
		"moon_visible":  strconv.FormatBool(s.State.MoonVisible),
		"sky_tint":      string(s.State.SkyTint),
		"building_tint": string(s.State.BuildingTint),
	}
}

// PublishState implements reconciler.StatePublisher.
func (p *Publisher) PublishState(s reconciler.Snapshot) error {
	if !p.enabled {
		return nil
	}

	for name, payload := range statePayloads(s) {
		topic := p.topic(name)
		token := p.client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			p.logger.Warn().Err(token.Error()).Str("topic", topic).Msg("failed to publish")
		}
	}

	stateJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	token := p.client.Publish(p.topic("state"), 0, true, stateJSON)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish state: %w", token.Error())
	}

	return nil
}

type discoveryEntity struct {
	Component string
	Name      string
	ID        string
	Icon      string
}

var entities = []discoveryEntity{
	{"sensor", "Phase", "phase", "mdi:weather-sunset"},
	{"binary_sensor", "Sun Visible", "sun_visible", "mdi:white-balance-sunny"},
	{"binary_sensor", "Moon Visible", "moon_visible", "mdi:moon-waning-crescent"},
	{"sensor", "Sky Tint", "sky_tint", "mdi:palette"},
	{"sensor", "Building Tint", "building_tint", "mdi:palette"},
}

// discoveryConfigs maps Home Assistant discovery topics to their payloads.
func discoveryConfigs(prefix string) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(entities))
	for _, e := range entities {
		config := map[string]interface{}{
			"name":        fmt.Sprintf("Dynamic Sky %s", e.Name),
			"unique_id":   fmt.Sprintf("%s_%s", deviceID, e.ID),
			"state_topic": fmt.Sprintf("%s/sky/%s", prefix, e.ID),
			"icon":        e.Icon,
			"device": map[string]interface{}{
				"identifiers": []string{deviceID},
				"name":        "Dynamic Sky",
				"model":       "hyprlax overlay controller",
			},
		}
		if e.Component == "binary_sensor" {
			config["payload_on"] = "true"
			config["payload_off"] = "false"
		}
		out[fmt.Sprintf("homeassistant/%s/%s/%s/config", e.Component, deviceID, e.ID)] = config
	}
	return out
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	for topic, config := range discoveryConfigs(p.topicPrefix) {
		payload, _ := json.Marshal(config)
		token := p.client.Publish(topic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			p.logger.Warn().Err(token.Error()).Str("topic", topic).Msg("failed to publish discovery")
		}
	}

	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
