// Package service maps storefront operations onto API calls. It holds no
// business logic and no state.
package service

import (
	"context"
)

// Requester sends one API request. *apiclient.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}
