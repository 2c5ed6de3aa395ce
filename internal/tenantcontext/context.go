// Package tenantcontext carries the resolved tenant scope through a request.
package tenantcontext

import (
	"context"

	billingdomain "github.com/Gor0d/FisioHUB-sub000/internal/billing/domain"
	"github.com/Gor0d/FisioHUB-sub000/internal/partition"
	tenantdomain "github.com/Gor0d/FisioHUB-sub000/internal/tenant/domain"
)

type contextKey string

const scopeKey contextKey = "tenant_scope"

// Scope is attached to the request context once the pipeline has resolved
// the tenant; domain handlers read all tenant-bound state from here.
type Scope struct {
	Tenant       *tenantdomain.Tenant
	Partition    partition.Handle
	Subscription *billingdomain.Subscription
}

func WithScope(ctx context.Context, scope Scope) context.Context {
	if ctx == nil || scope.Tenant == nil {
		return ctx
	}
	return context.WithValue(ctx, scopeKey, scope)
}

func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}
