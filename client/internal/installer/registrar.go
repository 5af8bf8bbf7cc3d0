package installer

import (
	"fmt"

	"github.com/kardianos/service"
)

// Registrar registers services with the host service manager directly
type Registrar interface {
	Install(name, displayName, executable string) error
	Uninstall(name string) error
}

type program struct{}

func (p *program) Start(service.Service) error { return nil }

func (p *program) Stop(service.Service) error { return nil }

type serviceRegistrar struct{}

func newServiceRegistrar() Registrar {
	return &serviceRegistrar{}
}

func newSVCConfig(name, displayName, executable string) *service.Config {
	config := &service.Config{
		Name:        name,
		DisplayName: displayName,
		Description: "Salt minion agent",
		Executable:  executable,
		Option:      make(service.KeyValue),
	}
	config.Option["StartType"] = "automatic"
	config.Option["OnFailure"] = "restart"
	return config
}

func (r *serviceRegistrar) Install(name, displayName, executable string) error {
	s, err := service.New(&program{}, newSVCConfig(name, displayName, executable))
	if err != nil {
		return fmt.Errorf("create service handle: %w", err)
	}
	if err := s.Install(); err != nil {
		return fmt.Errorf("install service: %w", err)
	}
	return nil
}

func (r *serviceRegistrar) Uninstall(name string) error {
	s, err := service.New(&program{}, newSVCConfig(name, name, ""))
	if err != nil {
		return fmt.Errorf("create service handle: %w", err)
	}
	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("uninstall service: %w", err)
	}
	return nil
}
