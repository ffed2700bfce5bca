// Copyright (c) 2026 Veyra. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides the read-side directory of registered identities.

It exposes paginated listing for administrators and public profile lookup,
reusing the identity storage maintained by the auth package. Nothing in this
package mutates user state.
*/
package account

import (
	"context"

	"github.com/taibuivan/veyra/internal/users/auth"
)

// DirectoryRepository defines the read-only data access this package needs.
//
// [auth.PostgresUserRepository] satisfies it; the directory deliberately
// shares the auth package's storage rather than owning a second mapping of
// the same table.
type DirectoryRepository interface {

	/*
		FindByID returns the identity with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *auth.User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*auth.User, error)

	/*
		FindPage returns one page of identities plus the directory total.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int

		Returns:
		  - []auth.User: Page of identities
		  - int: Total identity count
		  - error: Database retrieval failures
	*/
	FindPage(context context.Context, limit, offset int) ([]auth.User, int, error)
}
