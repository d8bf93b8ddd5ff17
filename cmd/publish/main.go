package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/cursus-client/pkg/config"
	"github.com/downfa11-org/cursus-client/pkg/connection"
	"github.com/downfa11-org/cursus-client/pkg/metrics"
	"github.com/downfa11-org/cursus-client/pkg/producer"
	"github.com/downfa11-org/cursus-client/util"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	broker := flag.String("broker", "", "Broker address (overrides config)")
	topic := flag.String("topic", "", "Default topic for lines without a topic prefix")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}
	if *broker != "" {
		cfg.BrokerAddrs = []string{*broker}
	}
	if *logLevel != "" {
		cfg.LogLevel = util.ParseLogLevel(*logLevel)
	}
	util.SetLevel(cfg.LogLevel)

	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}

	conn, err := connection.Dial(cfg.BrokerAddrs[0], cfg)
	if err != nil {
		util.Fatal("connect to broker: %v", err)
	}
	defer func() { _ = conn.Close() }()

	mp := producer.NewMultiTopicProducer(conn, cfg)
	defer mp.Close()

	fmt.Println("Publisher ready. Lines are 'topic<TAB>payload', or plain payloads with -topic.")

	var pending []<-chan producer.SendResult
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		target := *topic
		payload := line
		if t, p, ok := strings.Cut(line, "\t"); ok {
			target, payload = t, p
		}
		if target == "" {
			util.Warn("no topic for line %q, skipping", line)
			continue
		}

		pending = append(pending, mp.SendRaw(target, []byte(payload), nil))
	}

	sent, failed := 0, 0
	for _, res := range pending {
		if _, err := producer.Await(res); err != nil {
			util.Error("send failed: %v", err)
			failed++
		} else {
			sent++
		}
	}
	fmt.Printf("Published %d messages, %d failures\n", sent, failed)
}
