// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// The ticketportal service serves the ticket REST API.
//
// Without POSTGRES it keeps users and tickets in memory, which is good enough
// for trying the portal out. Users are provisioned from USERS, for example
//
//	USERS="noobMaster:CLIENT:secret,agent007:AGENT:secret"
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/ticketportal/core"
	"github.com/relabs-tech/ticketportal/core/access"
	"github.com/relabs-tech/ticketportal/core/backend"
	"github.com/relabs-tech/ticketportal/core/csql"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/notify"
	"github.com/relabs-tech/ticketportal/core/registry"
	"github.com/relabs-tech/ticketportal/core/store"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type Service struct {
	Postgres         string   `env:"POSTGRES" description:"the connection string for the Postgres DB without password, in-memory storage if empty"`
	PostgresPassword string   `env:"POSTGRES_PASSWORD" description:"password to the Postgres DB"`
	Schema           string   `env:"SCHEMA,default=ticketportal" description:"the database schema"`
	JwtSecret        string   `env:"JWT_SECRET" description:"base64 encoded token signing secret, kept in the registry if empty"`
	Users            string   `env:"USERS" description:"comma separated list of username:ROLE:password to provision"`
	KafkaBrokers     string   `env:"KAFKA_BROKERS" description:"comma separated list of Kafka brokers for ticket events, events are logged if empty"`
	KafkaTopic       string   `env:"KAFKA_TOPIC,default=ticket_events" description:"the Kafka topic for ticket events"`
	CORSOrigins      []string `env:"CORS_ORIGINS" description:"semicolon separated list of origins browsers may call the API from, all if empty"`
	Port             int      `env:"PORT,default=3000" description:"the port to listen on"`
	LogLevel         string   `env:"LOG_LEVEL,default=info" description:"the log level"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}
	logger.InitLogger(logger.ParseLevel(service.LogLevel))
	rlog := logger.Default()

	var (
		st     store.Store
		secret []byte
		err    error
	)
	if service.Postgres != "" {
		db, err := csql.OpenWithSchema(service.Postgres, service.PostgresPassword, service.Schema)
		if err != nil {
			rlog.WithError(err).Fatalln("cannot open database")
		}
		defer db.Close()
		st, err = store.NewPostgres(db)
		if err != nil {
			rlog.WithError(err).Fatalln("cannot create store")
		}
		if service.JwtSecret == "" {
			reg, err := registry.New(db)
			if err != nil {
				rlog.WithError(err).Fatalln("cannot create registry")
			}
			secret, err = access.LoadOrCreateSecret(reg.Accessor("token"))
			if err != nil {
				rlog.WithError(err).Fatalln("cannot load signing secret")
			}
		}
	} else {
		rlog.Warnln("no POSTGRES configured, tickets are kept in memory")
		st = store.NewMemory()
	}

	if service.JwtSecret != "" {
		secret, err = access.DecodeSecret(service.JwtSecret)
		if err != nil {
			rlog.WithError(err).Fatalln("invalid JWT_SECRET")
		}
	} else if secret == nil {
		rlog.Warnln("no JWT_SECRET configured, tokens become invalid on restart")
		if secret, err = access.GenerateSecret(); err != nil {
			rlog.WithError(err).Fatalln("cannot generate signing secret")
		}
	}

	var notifier core.Notifier = notify.Log{}
	if service.KafkaBrokers != "" {
		k, err := notify.NewKafka(&notify.KafkaBuilder{Brokers: service.KafkaBrokers, Topic: service.KafkaTopic})
		if err != nil {
			rlog.WithError(err).Fatalln("cannot create Kafka notifier")
		}
		defer k.Close()
		notifier = k
	}

	router := mux.NewRouter()
	b := backend.New(&backend.Builder{
		Router:         router,
		Store:          st,
		Issuer:         access.NewTokenIssuer(secret),
		Notifier:       notifier,
		AllowedOrigins: service.CORSOrigins,
	})

	if service.Users != "" {
		accounts, err := access.ParseAccounts(service.Users)
		if err != nil {
			rlog.WithError(err).Fatalln("invalid USERS")
		}
		if err := b.EnsureUsers(context.Background(), accounts...); err != nil {
			rlog.WithError(err).Fatalln("cannot provision users")
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", service.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	rlog.Infof("listen on port :%d", service.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		rlog.WithError(err).Fatalln("server failed")
	}
}
