package main

import (
	"context"

	"github.com/hashicorp/go-multierror"

	chclient "github.com/openrport/dashnotify/client"
	chserver "github.com/openrport/dashnotify/server"
	"github.com/openrport/dashnotify/share/logger"
)

// agent is one running session plus its optional local API.
type agent struct {
	config  *chclient.Config
	logger  *logger.Logger
	session *chclient.Session
	api     *chserver.APIListener
}

func newAgent(config *chclient.Config, l *logger.Logger) *agent {
	return &agent{
		config: config,
		logger: l,
	}
}

func (a *agent) Start(ctx context.Context) error {
	a.session = chclient.NewSession(a.config, a.logger.Fork("session"))
	if err := a.session.Start(ctx); err != nil {
		return err
	}

	if a.config.API.Address == "" {
		a.logger.Infof("Local API disabled")
		return nil
	}
	api, err := chserver.NewAPIListener(a.config.API, a.session, a.logger)
	if err != nil {
		return err
	}
	a.api = api
	return a.api.Start()
}

func (a *agent) Close() error {
	var result error
	if a.api != nil {
		if err := a.api.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
