// internal/secrets/interface.go
package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/avrabe/mcp-loxone/internal/core"
)

// Store is a durable name -> secret mapping.
//
// Get returns an error matching core.ErrSecretNotFound when nothing is stored
// under name. Backend failures are wrapped in core.ErrSecretStore.
type Store interface {
	// Get retrieves the secret stored under name.
	Get(ctx context.Context, name string) (string, error)

	// Set stores secret under name, replacing any previous value.
	Set(ctx context.Context, name, secret string) error

	// Delete removes the secret. Deleting a missing secret is not an error.
	Delete(ctx context.Context, name string) error
}

func validateName(name string) error {
	if name == "" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("secret name is empty"))
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("secret name %q contains path elements", name))
	}
	return nil
}

func notFound(name string) error {
	return core.WrapError(core.ErrSecretNotFound, fmt.Errorf("no secret named %q", name))
}

func storeErr(op string, err error) error {
	return core.WrapError(core.ErrSecretStore, fmt.Errorf("%s: %w", op, err))
}
