package service

import (
	"context"
	"fmt"
)

// Service is anything the application can own.
type Service interface{}

// RunnableService is a service with an explicit run and stop cycle.
type RunnableService interface {
	Service

	Run()
	Shutdown(ctx context.Context) error
}

// Group starts and stops a set of services in the order they were added.
type Group struct {
	services []Service
}

func (g *Group) Add(svc ...Service) { g.services = append(g.services, svc...) }

// Start runs each runnable service of the group.
func (g *Group) Start() {
	for _, s := range g.services {
		if v, ok := s.(RunnableService); ok {
			v.Run()
		}
	}
}

// Shutdown stops the group, collecting the errors of every service.
func (g *Group) Shutdown(ctx context.Context) (err error) {
	var errs []error
	for _, s := range g.services {
		if v, ok := s.(RunnableService); ok {
			if err := v.Shutdown(ctx); err != nil && err != context.Canceled {
				errs = append(errs, fmt.Errorf("couldn't stop [%s]: %v", s, err))
			}
		}
	}
	if len(errs) > 0 {
		err = fmt.Errorf("%s", errs)
	}
	return
}
