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

package main

import (
	"context"
	"fmt"
	"os"

	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/server"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/devices"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/mqtt"
)

const (
	projectName       = "Double Pulse Test Generator"
	defaultServerPort = 8080

	defaultPositivePin = 7
	defaultNegativePin = 8
	defaultButtonPin   = 4
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var serverHost string
	var serverPort int
	var hardwareType string
	var positivePin, negativePin, buttonPin int
	var mqttBroker string
	var mqttTopicPrefix string

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVar(&hardwareType, "hardware", "gpio", "Type of output hardware to use (gpio|sim)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.IntVar(&positivePin, "pin-positive", defaultPositivePin, "GPIO pin of the positive output channel")
	pflag.IntVar(&negativePin, "pin-negative", defaultNegativePin, "GPIO pin of the negative output channel")
	pflag.IntVar(&buttonPin, "pin-button", defaultButtonPin, "GPIO pin of the trigger button")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "Address (host:port) of an MQTT broker to publish events to")
	pflag.StringVar(&mqttTopicPrefix, "mqtt-topic-prefix", "dpt", "Prefix of all published MQTT topics")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(levelFlag); err == nil {
		logger = logger.Level(level)
	}

	var positive, negative devices.PulseChannel
	var button devices.Button
	switch hardwareType {
	case "gpio":
		// The positive channel idles low, the complementary channel idles high.
		positive = devices.NewGPIOPulseChannel(positivePin, false)
		negative = devices.NewGPIOPulseChannel(negativePin, true)
		button = devices.NewGPIOButton(buttonPin)
	case "sim":
		positive = devices.NewStubPulseChannel(false)
		negative = devices.NewStubPulseChannel(true)
		button = devices.NewStubButton()
	default:
		Exitf("Unknown hardware type '%s' (gpio|sim)\n", hardwareType)
	}

	var mqttService mqtt.Service
	if mqttBroker != "" {
		result, err := mqtt.NewService(mqtt.Config{
			BrokerAddress: mqttBroker,
			ClientID:      fmt.Sprintf("dpt-%d", os.Getpid()),
			TopicPrefix:   mqttTopicPrefix,
		}, logger)
		if err != nil {
			Exitf("Failed to initialize MQTT service: %v\n", err)
		}
		mqttService = result
	}

	svc, err := service.NewService(service.Config{}, service.Dependencies{
		Log:      logger,
		Positive: positive,
		Negative: negative,
		Button:   button,
		Mqtt:     mqttService,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	httpServer, err := server.NewServer(server.Config{
		Host: serverHost,
		Port: serverPort,
	}, svc, logger)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
