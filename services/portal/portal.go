// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// The portal service serves the web front-end of the ticket portal. It talks
// to the ticketportal service at API_URL.
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/ticketportal/core/client"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/portal/web"
)

// Service holds the configuration for this service
type Service struct {
	APIURL        string `env:"API_URL,default=http://localhost:3000" description:"the base URL of the ticketportal service"`
	Port          int    `env:"PORT,default=8080" description:"the port to listen on"`
	SecureCookies bool   `env:"SECURE_COOKIES,default=false" description:"only send the token cookie over https"`
	LogLevel      string `env:"LOG_LEVEL,default=info" description:"the log level"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}
	logger.InitLogger(logger.ParseLevel(service.LogLevel))
	rlog := logger.Default()

	api := client.NewWithURL(service.APIURL)
	if version, err := api.Version(); err != nil {
		rlog.WithError(err).Warnf("ticketportal service at %s is not reachable", service.APIURL)
	} else {
		rlog.Infof("ticketportal service at %s has version %s", service.APIURL, version)
	}

	router := mux.NewRouter()
	web.New(&web.Builder{
		Router:        router,
		Client:        &api,
		SecureCookies: service.SecureCookies,
	})

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
