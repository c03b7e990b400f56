package warehouse

import (
	"fmt"

	"go.uber.org/zap"

	"RebateRecon/internal/config"
	"RebateRecon/internal/logger"
)

// Service opens the warehouse on Start and closes it on Stop so commands can
// run it through the app manager next to the logger.
type Service struct {
	path string
	wh   *Warehouse
}

func NewWarehouseService(cfg map[string]interface{}) *Service {
	s := &Service{path: config.DefaultDuckDBPath}
	if v, ok := cfg["path"].(string); ok && v != "" {
		s.path = v
	}
	return s
}

func (s *Service) Name() string { return "warehouse" }

func (s *Service) Start() error {
	if s.wh != nil {
		return nil
	}
	wh, err := Open(s.path, logger.L().Named("warehouse"))
	if err != nil {
		return fmt.Errorf("warehouse service: %w", err)
	}
	s.wh = wh
	logger.L().Info("warehouse open", zap.String("path", s.path))
	return nil
}

func (s *Service) Stop() error {
	if s.wh == nil {
		return nil
	}
	err := s.wh.Close()
	s.wh = nil
	return err
}

// Warehouse is nil until Start succeeds.
func (s *Service) Warehouse() *Warehouse { return s.wh }

func (s *Service) Path() string { return s.path }
