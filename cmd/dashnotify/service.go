package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kardianos/service"

	chshare "github.com/openrport/dashnotify/share"
)

var svcConfig = &service.Config{
	Name:        "dashnotify",
	DisplayName: "Dashboard Notifications",
	Description: "Delivers merchant dashboard notifications to the desktop.",
	Option: service.KeyValue{
		"UserService": true,
	},
}

func handleSvcCommand(svcCommand string, configPath string) error {
	svc, err := getService(nil, configPath)
	if err != nil {
		return err
	}

	return chshare.HandleServiceCommand(svc, svcCommand, os.Stdout)
}

func runAsService(a *agent, configPath string) error {
	svc, err := getService(a, configPath)
	if err != nil {
		return err
	}

	return svc.Run()
}

func getService(a *agent, configPath string) (service.Service, error) {
	if configPath != "" {
		absConfigPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		svcConfig.Arguments = []string{"-c", absConfigPath}
	}
	return service.New(&serviceWrapper{agent: a}, svcConfig)
}

type serviceWrapper struct {
	agent *agent
}

func (w *serviceWrapper) Start(service.Service) error {
	if w.agent == nil {
		return nil
	}
	return w.agent.Start(context.Background())
}

func (w *serviceWrapper) Stop(service.Service) error {
	if w.agent == nil {
		return nil
	}
	return w.agent.Close()
}
