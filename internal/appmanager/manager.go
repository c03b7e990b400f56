package appmanager

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"RebateRecon/internal/config"
	"RebateRecon/internal/logger"
	"RebateRecon/internal/serviceiface"
	"RebateRecon/internal/warehouse"
)

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		return logger.NewLoggerService(cfg)
	},
	"warehouse": func(cfg map[string]interface{}) serviceiface.Service {
		return warehouse.NewWarehouseService(cfg)
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	started  int
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

// StartAll starts services in registration order. On failure the services
// already running are left for StopAll.
func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services[am.started:] {
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
		am.started++
		logger.L().Debug("service started", zap.String("service", service.Name()))
	}
	return nil
}

// StopAll stops started services in reverse order and reports every failure.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	var errs []error
	for i := am.started - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop service %s: %w", svc.Name(), err))
		}
	}
	am.started = 0
	return errors.Join(errs...)
}

// AutoRegisterServices builds the configured services, already sorted by
// start_order. Unknown names are skipped.
func (am *AppManager) AutoRegisterServices(configs []config.ServiceConfig) []string {
	var skipped []string
	for _, svc := range configs {
		constructor, ok := serviceConstructors[svc.Name]
		if !ok {
			skipped = append(skipped, svc.Name)
			continue
		}
		am.RegisterService(constructor(svc.Config))
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
	return skipped
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}

// Warehouse returns the open warehouse, or nil when the warehouse service
// is not registered or not started.
func (am *AppManager) Warehouse() *warehouse.Warehouse {
	if s, ok := am.GetServiceByName("warehouse").(*warehouse.Service); ok {
		return s.Warehouse()
	}
	return nil
}
