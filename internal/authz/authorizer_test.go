package authz

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunvault/dunvault/internal/rbac"
	"github.com/dunvault/dunvault/internal/shared"
)

var duns = []string{"", "Kawang", "Limbahau", "Pantai Manis"}

type recordingObserver struct {
	mu        sync.Mutex
	decisions []Decision
}

func (o *recordingObserver) ObserveDecision(p Principal, d Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, d)
}

func TestAuthorizeMatchesTable(t *testing.T) {
	a := NewAuthorizer(nil, nil)
	for _, role := range append(rbac.Roles(), rbac.RoleUnknown) {
		for _, c := range append(rbac.Capabilities(), rbac.CapUnknown) {
			err := a.Authorize(Principal{ID: 1, Role: role}, c)
			if rbac.Has(role, c) {
				assert.NoError(t, err, "%s/%s", role, c)
				continue
			}
			require.Error(t, err, "%s/%s", role, c)
			assert.ErrorIs(t, err, shared.ErrForbidden)
			var denial *Denial
			require.True(t, errors.As(err, &denial))
			assert.Equal(t, CauseCapability, denial.Cause)
		}
	}
}

func TestCheckResourceScopeProperty(t *testing.T) {
	a := NewAuthorizer(nil, nil)
	for _, role := range rbac.Roles() {
		for _, own := range duns {
			for _, target := range duns {
				p := Principal{ID: 1, Role: role, DUN: own}
				err := a.CheckResource(p, target)
				if role == rbac.RoleSuperAdmin {
					assert.NoError(t, err)
					continue
				}
				if own != "" && own == target {
					assert.NoError(t, err, "%s %q→%q", role, own, target)
				} else {
					assert.ErrorIs(t, err, shared.ErrForbidden, "%s %q→%q", role, own, target)
				}
			}
		}
	}
}

func TestCheckResourceNoDUNIsDistinct(t *testing.T) {
	a := NewAuthorizer(nil, nil)
	err := a.CheckResource(Principal{ID: 3, Role: rbac.RolePDM}, "Kawang")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNoDUNAssignment)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.NotErrorIs(t, err, shared.ErrNotFound)

	err = a.CheckResource(Principal{ID: 3, Role: rbac.RolePDM, DUN: "Limbahau"}, "Kawang")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNoDUNAssignment)
	assert.NotContains(t, err.Error(), "Kawang")
}

func TestScope(t *testing.T) {
	a := NewAuthorizer(nil, nil)

	s := a.Scope(Principal{Role: rbac.RoleSuperAdmin}, "")
	assert.True(t, s.All)
	assert.True(t, s.Allows("Kawang"))
	assert.True(t, s.Allows(""))

	s = a.Scope(Principal{Role: rbac.RoleSuperAdmin}, "Pantai Manis")
	assert.False(t, s.All)
	assert.True(t, s.Allows("Pantai Manis"))
	assert.False(t, s.Allows("Kawang"))

	s = a.Scope(Principal{Role: rbac.RoleCandidate, DUN: "Kawang"}, "Pantai Manis")
	assert.Equal(t, Scope{DUN: "Kawang"}, s)
	assert.False(t, s.Allows("Pantai Manis"))

	s = a.Scope(Principal{Role: rbac.RoleCandidate}, "Kawang")
	assert.True(t, s.Empty())
	assert.False(t, s.Allows("Kawang"))
	assert.False(t, s.Allows(""))
	assert.Equal(t, "none", s.Key())
}

func TestCanMutateScenarios(t *testing.T) {
	a := NewAuthorizer(nil, nil)

	// Capability missing even though the DUN matches.
	err := a.CanMutate(Principal{ID: 10, Role: rbac.RoleCandidateAssistant, DUN: "Kawang"}, rbac.CapUpdateVoters, "Kawang")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	var denial *Denial
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, CauseCapability, denial.Cause)

	// Capability present but the DUN differs.
	err = a.CanMutate(Principal{ID: 11, Role: rbac.RolePDM, DUN: "Limbahau"}, rbac.CapUpdateVoters, "Kawang")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, CauseScope, denial.Cause)

	assert.NoError(t, a.CanMutate(Principal{ID: 12, Role: rbac.RolePDM, DUN: "Kawang"}, rbac.CapUpdateVoters, "Kawang"))
	assert.NoError(t, a.CanMutate(Principal{ID: 1, Role: rbac.RoleSuperAdmin}, rbac.CapUpdateVoters, "Kawang"))
}

func TestObserverSeesDenials(t *testing.T) {
	obs := &recordingObserver{}
	a := NewAuthorizer(nil, obs)
	_ = a.CanMutate(Principal{ID: 11, Role: rbac.RolePDM, DUN: "Limbahau"}, rbac.CapUpdateVoters, "Kawang")
	require.Len(t, obs.decisions, 2)
	assert.True(t, obs.decisions[0].Allowed)
	assert.False(t, obs.decisions[1].Allowed)
	assert.Equal(t, CauseScope, obs.decisions[1].Cause)
}

func TestMiddlewareRequire(t *testing.T) {
	m := Middleware{Authorizer: NewAuthorizer(nil, nil)}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := m.Require(rbac.CapViewAuditLogs)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = req.WithContext(ContextWithPrincipal(req.Context(), Principal{ID: 2, Role: rbac.RoleCandidate, DUN: "Kawang"}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = req.WithContext(ContextWithPrincipal(req.Context(), Principal{ID: 1, Role: rbac.RoleSuperAdmin}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
