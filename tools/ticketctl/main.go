// ticketctl is the command line front-end of the support ticket portal
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/portal/session"
	"github.com/relabs-tech/ticketportal/tools/ticketctl/commands"
)

// Config holds the configuration of ticketctl
type Config struct {
	URL          string `env:"TICKETPORTAL_URL,default=http://localhost:3000" description:"the base URL of the ticketportal service"`
	TokenFile    string `env:"TICKETPORTAL_TOKEN_FILE" description:"the file which keeps the session, in the user config directory if empty"`
	KafkaBrokers string `env:"TICKETPORTAL_KAFKA_BROKERS" description:"comma separated list of Kafka brokers for the events command"`
	KafkaTopic   string `env:"TICKETPORTAL_KAFKA_TOPIC,default=ticket_events" description:"the Kafka topic of ticket events"`
	LogLevel     string `env:"LOG_LEVEL,default=warning" description:"the log level"`
}

func main() {
	config := &Config{}
	if err := envdecode.Decode(config); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.InitLogger(logger.ParseLevel(config.LogLevel))

	var tokens session.TokenStore
	if config.TokenFile != "" {
		tokens = &session.FileStore{Path: config.TokenFile}
	} else {
		fileStore, err := session.DefaultFileStore()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		tokens = fileStore
	}

	root := commands.NewRootCommand(commands.Config{
		Client:       client.NewWithURL(config.URL),
		Tokens:       tokens,
		KafkaBrokers: config.KafkaBrokers,
		KafkaTopic:   config.KafkaTopic,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
