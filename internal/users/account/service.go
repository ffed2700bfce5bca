// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"

	"github.com/taibuivan/veyra/internal/users/auth"
	"github.com/taibuivan/veyra/pkg/pagination"
)

// # Service Layer

// Service orchestrates read-only directory queries over registered identities.
type Service struct {
	directoryRepository DirectoryRepository
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(directoryRepo DirectoryRepository) *Service {
	return &Service{directoryRepository: directoryRepo}
}

/*
List returns one page of the identity directory.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []auth.User: Page of identities
  - pagination.Meta: Page metadata including the directory total
  - error: Retrieval failures
*/
func (service *Service) List(context context.Context, params pagination.Params) ([]auth.User, pagination.Meta, error) {
	users, total, err := service.directoryRepository.FindPage(context, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return users, pagination.NewMeta(params.Page, params.Limit, total), nil
}

/*
Get retrieves a single identity by ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *auth.User: The hydrated identity
  - error: apperr.NotFound or execution failures
*/
func (service *Service) Get(context context.Context, id string) (*auth.User, error) {
	user, err := service.directoryRepository.FindByID(context, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}
