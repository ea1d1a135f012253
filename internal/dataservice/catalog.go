package dataservice

import (
	"context"

	"github.com/calibworks/calibtrack/internal/transport"
	"github.com/calibworks/calibtrack/pkg/models"
)

// Catalog resources (products, customers, technicians) follow the simple
// mutation rule: write through the transport, then invalidate the resource's
// cache prefix so the next read refetches. Only order mutations are
// optimistic.

func (s *Service) GetProducts(ctx context.Context, forceRefresh bool) ([]models.Product, error) {
	if !forceRefresh {
		if v, ok := s.cache.Get(cacheKeyProducts); ok {
			return v.([]models.Product), nil
		}
	}

	raw, err := s.invoke(ctx, transport.OpGetProducts, nil)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := decode(raw, &products); err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyProducts, products)
	return products, nil
}

func (s *Service) AddProduct(ctx context.Context, product models.Product) (models.Product, error) {
	if product.Name == "" {
		return models.Product{}, &ValidationError{Field: "name", Message: "product name is required"}
	}
	if product.StandardPrice < 0 {
		return models.Product{}, &ValidationError{Field: "standardPrice", Message: "price must not be negative"}
	}

	raw, err := s.invoke(ctx, transport.OpAddProduct, product)
	if err != nil {
		return models.Product{}, err
	}
	var created models.Product
	if err := decode(raw, &created); err != nil {
		return models.Product{}, err
	}
	s.cache.Invalidate(cacheKeyProducts)
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	if product.ID == "" {
		return models.Product{}, &ValidationError{Field: "id", Message: "product id is required"}
	}
	if product.Name == "" {
		return models.Product{}, &ValidationError{Field: "name", Message: "product name is required"}
	}
	if product.StandardPrice < 0 {
		return models.Product{}, &ValidationError{Field: "standardPrice", Message: "price must not be negative"}
	}

	raw, err := s.invoke(ctx, transport.OpUpdateProduct, product)
	if err != nil {
		return models.Product{}, err
	}
	var updated models.Product
	if err := decode(raw, &updated); err != nil {
		return models.Product{}, err
	}
	s.cache.Invalidate(cacheKeyProducts)
	return updated, nil
}

func (s *Service) GetCustomers(ctx context.Context, forceRefresh bool) ([]models.Customer, error) {
	if !forceRefresh {
		if v, ok := s.cache.Get(cacheKeyCustomers); ok {
			return v.([]models.Customer), nil
		}
	}

	raw, err := s.invoke(ctx, transport.OpGetCustomers, nil)
	if err != nil {
		return nil, err
	}
	var customers []models.Customer
	if err := decode(raw, &customers); err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyCustomers, customers)
	return customers, nil
}

func (s *Service) AddCustomer(ctx context.Context, customer models.Customer) (models.Customer, error) {
	if customer.Name == "" {
		return models.Customer{}, &ValidationError{Field: "name", Message: "customer name is required"}
	}

	raw, err := s.invoke(ctx, transport.OpAddCustomer, customer)
	if err != nil {
		return models.Customer{}, err
	}
	var created models.Customer
	if err := decode(raw, &created); err != nil {
		return models.Customer{}, err
	}
	s.cache.Invalidate(cacheKeyCustomers)
	return created, nil
}

func (s *Service) GetTechnicians(ctx context.Context, forceRefresh bool) ([]models.Technician, error) {
	if !forceRefresh {
		if v, ok := s.cache.Get(cacheKeyTechnicians); ok {
			return v.([]models.Technician), nil
		}
	}

	raw, err := s.invoke(ctx, transport.OpGetTechnicians, nil)
	if err != nil {
		return nil, err
	}
	var technicians []models.Technician
	if err := decode(raw, &technicians); err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyTechnicians, technicians)
	return technicians, nil
}

func (s *Service) AddTechnician(ctx context.Context, technician models.Technician) (models.Technician, error) {
	if technician.Name == "" {
		return models.Technician{}, &ValidationError{Field: "name", Message: "technician name is required"}
	}

	raw, err := s.invoke(ctx, transport.OpAddTechnician, technician)
	if err != nil {
		return models.Technician{}, err
	}
	var created models.Technician
	if err := decode(raw, &created); err != nil {
		return models.Technician{}, err
	}
	s.cache.Invalidate(cacheKeyTechnicians)
	return created, nil
}

func (s *Service) DeleteTechnician(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "technician id is required"}
	}

	if _, err := s.invoke(ctx, transport.OpDeleteTechnician, transport.IDPayload{ID: id}); err != nil {
		return err
	}
	s.cache.Invalidate(cacheKeyTechnicians)
	return nil
}

// CheckAdminPassword verifies the shared admin password. The check always
// goes to the transport; password state is never cached.
func (s *Service) CheckAdminPassword(ctx context.Context, password string) (bool, error) {
	raw, err := s.invoke(ctx, transport.OpCheckAdminPassword, transport.PasswordPayload{Password: password})
	if err != nil {
		return false, err
	}
	return coerceBool(raw)
}

func (s *Service) ChangeAdminPassword(ctx context.Context, oldPassword, newPassword string) (bool, error) {
	if newPassword == "" {
		return false, &ValidationError{Field: "newPassword", Message: "new password is required"}
	}

	raw, err := s.invoke(ctx, transport.OpChangeAdminPassword, transport.ChangePasswordPayload{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		return false, err
	}
	return coerceBool(raw)
}
