// Copyright 2024 Yang Xie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mqtt publishes generation events and parameter changes to
// an MQTT broker, so the lab network can observe the generator without
// polling it.
package mqtt

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	publishTimeout = time.Millisecond * 200
)

var (
	maskAny = errors.WithStack
)

type Config struct {
	// Address (host:port) of the MQTT broker
	BrokerAddress string
	// Client ID to connect with
	ClientID string
	// Prefix for all published topics
	TopicPrefix string
}

// Service contains the API exposed by the MQTT service.
type Service interface {
	// Configure connects to the broker.
	Configure(ctx context.Context) error
	// Close the service
	Close() error
	// Publish a JSON encoded message into a topic below the configured prefix.
	Publish(ctx context.Context, msg interface{}, topicSuffix string) error
}

// NewService instantiates a new MQTT service.
func NewService(conf Config, log zerolog.Logger) (Service, error) {
	return &service{
		Config: conf,
		log:    log.With().Str("component", "mqtt").Logger(),
	}, nil
}

type service struct {
	Config
	log    zerolog.Logger
	mutex  sync.Mutex
	client mqttapi.Client
}

// Configure connects to the broker.
func (s *service) Configure(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + s.BrokerAddress).
		SetClientID(s.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)

	client := mqttapi.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return maskAny(token.Error())
	}
	s.client = client
	return nil
}

// Close the service
func (s *service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.client != nil {
		s.client.Disconnect(250)
		s.client = nil
	}
	return nil
}

// Publish a JSON encoded message into a topic below the configured prefix.
func (s *service) Publish(ctx context.Context, msg interface{}, topicSuffix string) error {
	s.mutex.Lock()
	client := s.client
	s.mutex.Unlock()
	if client == nil {
		return maskAny(errors.New("not connected"))
	}

	encoded, err := json.Marshal(msg)
	if err != nil {
		return maskAny(err)
	}
	topic := path.Join(s.TopicPrefix, topicSuffix)
	token := client.Publish(topic, 0, false, encoded)
	if !token.WaitTimeout(publishTimeout) {
		return maskAny(errors.Errorf("publish to '%s' timed out", topic))
	}
	if err := token.Error(); err != nil {
		return maskAny(err)
	}
	s.log.Debug().Str("topic", topic).Msg("message published")
	return nil
}
