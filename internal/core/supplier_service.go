package core

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SupplierInput holds the fields required to create a supplier.
// PayableAccountCode is optional; when empty, AccountRules derives one from Code.
type SupplierInput struct {
	Code               string
	Name               string
	PayableAccountCode string
}

// SupplierService is plain record storage for suppliers.
type SupplierService interface {
	CreateSupplier(ctx context.Context, input SupplierInput) (*Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
}

type supplierService struct {
	coord  *Coordinator
	logger *logrus.Logger
}

// NewSupplierService constructs a SupplierService over the coordinator's store.
func NewSupplierService(coord *Coordinator, logger *logrus.Logger) SupplierService {
	return &supplierService{coord: coord, logger: logger}
}

// CreateSupplier inserts a new supplier. Codes are unique.
func (s *supplierService) CreateSupplier(ctx context.Context, input SupplierInput) (*Supplier, error) {
	code := strings.TrimSpace(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" {
		return nil, invalid("code", "is required")
	}
	if name == "" {
		return nil, invalid("name", "is required")
	}

	sup := &Supplier{
		ID:                 uuid.New(),
		Code:               code,
		Name:               name,
		PayableAccountCode: strings.TrimSpace(input.PayableAccountCode),
		CreatedAt:          s.coord.Now(),
	}
	err := s.coord.Atomic(ctx, "create supplier", func(ctx context.Context, tx Tx) error {
		return tx.Suppliers().Create(ctx, sup)
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"supplier_id": sup.ID, "code": sup.Code}).Info("supplier created")
	return sup, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	var sup *Supplier
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		sup, err = tx.Suppliers().Get(ctx, id)
		return err
	})
	return sup, err
}

// ListSuppliers returns all suppliers ordered by code.
func (s *supplierService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	err := s.coord.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		suppliers, err = tx.Suppliers().List(ctx)
		return err
	})
	return suppliers, err
}
