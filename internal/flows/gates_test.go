package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/authgate/permission"
	"github.com/MrEthical07/authgate/session"
	"github.com/stretchr/testify/assert"
)

var testRoles = fakeRoles{
	"User":                {Name: "User", Permissions: []string{"View Orders"}},
	"Editor":              {Name: "Editor", Permissions: []string{"Manage Blog", permission.AdminDashboard}},
	permission.SuperAdmin: {Name: permission.SuperAdmin},
}

func gateDeps(keys *fakeKeys) GateDeps {
	return GateDeps{
		Keys:            keys,
		Roles:           testRoles,
		Capabilities:    permission.DefaultCapabilities,
		AdminPathPrefix: "/api/admin",
		MutatingMethods: map[string]struct{}{"POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {}},
	}
}

func TestRolesGate(t *testing.T) {
	deps := gateDeps(&fakeKeys{})
	ctx := context.Background()

	res := RunRolesGate(ctx, GateRequest{Path: "/api/x"}, deps)
	assert.Equal(t, GateFailureNone, res.Failure, "no permission declared")

	res = RunRolesGate(ctx, GateRequest{Path: "/api/x", Permission: "View Orders"}, deps)
	assert.Equal(t, GateFailureUnauthenticated, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Path: "/api/x", Permission: "View Orders", Identity: &Identity{ID: "u", Role: "User"}}, deps)
	assert.Equal(t, GateFailureNone, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Path: "/api/x", Permission: "Manage Blog", Identity: &Identity{ID: "u", Role: "User"}}, deps)
	assert.Equal(t, GateFailurePermission, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Path: "/api/x", Permission: "Anything", Identity: &Identity{ID: "u", Role: permission.SuperAdmin}}, deps)
	assert.Equal(t, GateFailureNone, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Path: "/api/x", Permission: "View Orders", Identity: &Identity{ID: "u", Role: "Ghost"}}, deps)
	assert.Equal(t, GateFailureRoleLookup, res.Failure)
}

func TestRolesGateDemoFreeze(t *testing.T) {
	deps := gateDeps(&fakeKeys{})
	deps.DemoMode = true
	ctx := context.Background()
	editor := &Identity{ID: "u", Role: "Editor"}

	res := RunRolesGate(ctx, GateRequest{Method: "POST", Path: "/api/admin/blog", Permission: "Manage Blog", Identity: editor}, deps)
	assert.Equal(t, GateFailureDemoMode, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Method: "patch", Path: "/api/admin/blog", Permission: "Manage Blog", Identity: editor}, deps)
	assert.Equal(t, GateFailureDemoMode, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Method: "GET", Path: "/api/admin/blog", Permission: "Manage Blog", Identity: editor}, deps)
	assert.Equal(t, GateFailureNone, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Method: "POST", Path: "/api/blog", Permission: "Manage Blog", Identity: editor}, deps)
	assert.Equal(t, GateFailureNone, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Method: "DELETE", Path: "/api/admin/blog", Permission: "Manage Blog", Identity: &Identity{ID: "root", Role: permission.SuperAdmin}}, deps)
	assert.Equal(t, GateFailureNone, res.Failure)
}

func TestRolesGateAPIKeyScope(t *testing.T) {
	keys := &fakeKeys{keys: map[string]*permission.APIKey{
		"trader": {Key: "trader", UserID: "u", Permissions: `["trade"]`},
	}}
	deps := gateDeps(keys)
	ctx := context.Background()
	id := &Identity{ID: "u", Role: "User", APIKey: true}

	res := RunRolesGate(ctx, GateRequest{Path: "/api/exchange/order", Permission: "View Orders", Identity: id, APIKey: "trader"}, deps)
	assert.Equal(t, GateFailureNone, res.Failure)
	assert.Equal(t, "trade", res.Capability)

	res = RunRolesGate(ctx, GateRequest{Path: "/api/finance/withdraw/spot", Permission: "View Orders", Identity: id, APIKey: "trader"}, deps)
	assert.Equal(t, GateFailureCapability, res.Failure)
	assert.Equal(t, "withdraw", res.Capability)

	// Unclaimed path falls through to the role check.
	res = RunRolesGate(ctx, GateRequest{Path: "/api/user/profile", Permission: "Manage Blog", Identity: id, APIKey: "trader"}, deps)
	assert.Equal(t, GateFailurePermission, res.Failure)

	res = RunRolesGate(ctx, GateRequest{Path: "/api/exchange/order", Permission: "View Orders", Identity: id, APIKey: "revoked"}, deps)
	assert.Equal(t, GateFailureAPIKeyInvalid, res.Failure)

	keys.err = errors.New("db down")
	res = RunRolesGate(ctx, GateRequest{Path: "/api/exchange/order", Permission: "View Orders", Identity: id, APIKey: "trader"}, deps)
	assert.Equal(t, GateFailureAPIKeyInvalid, res.Failure)
}

func TestMaintenance(t *testing.T) {
	ctx := context.Background()
	off := MaintenanceDeps{Roles: testRoles}
	on := MaintenanceDeps{Enabled: true, Roles: testRoles}

	assert.Equal(t, MaintenanceFailureNone, RunMaintenance(ctx, nil, off).Failure)
	assert.Equal(t, MaintenanceFailureUnauthenticated, RunMaintenance(ctx, nil, on).Failure)
	assert.Equal(t, MaintenanceFailureLocked, RunMaintenance(ctx, &Identity{ID: "u", Role: "User"}, on).Failure)
	assert.Equal(t, MaintenanceFailureNone, RunMaintenance(ctx, &Identity{ID: "u", Role: "Editor"}, on).Failure)
	assert.Equal(t, MaintenanceFailureNone, RunMaintenance(ctx, &Identity{ID: "u", Role: permission.SuperAdmin}, on).Failure)
	assert.Equal(t, MaintenanceFailureRoleLookup, RunMaintenance(ctx, &Identity{ID: "u"}, on).Failure)
}

func TestPluginKey(t *testing.T) {
	keys := &fakeKeys{keys: map[string]*permission.APIKey{
		"plug":  {Key: "plug", Type: permission.KeyTypePlugin, Permissions: []string{"payment"}},
		"human": {Key: "human", Type: "user", Permissions: []string{"payment"}},
	}}
	deps := PluginDeps{Keys: keys, Capabilities: permission.DefaultCapabilities}
	ctx := context.Background()

	assert.Equal(t, PluginFailureKeyRequired, RunPluginKey(ctx, "", "/api/ext/payment/intent", deps).Failure)
	assert.Equal(t, PluginFailureInvalidKey, RunPluginKey(ctx, "nope", "/api/ext/payment/intent", deps).Failure)
	assert.Equal(t, PluginFailureNotPlugin, RunPluginKey(ctx, "human", "/api/ext/payment/intent", deps).Failure)
	assert.Equal(t, PluginFailureNone, RunPluginKey(ctx, "plug", "/api/ext/payment/intent/create", deps).Failure)
	assert.Equal(t, PluginFailurePermission, RunPluginKey(ctx, "plug", "/api/finance/transfer", deps).Failure)
	assert.Equal(t, PluginFailureNone, RunPluginKey(ctx, "plug", "/api/unscoped", deps).Failure)
}

func TestCSRF(t *testing.T) {
	store := newFakeSessions()
	store.records[session.CSRFKey("u1", "sid")] = &session.Record{CSRFToken: "tok"}
	deps := CSRFDeps{
		Sessions:       store,
		ProtectedPaths: map[string]struct{}{"/logout": {}},
		ReadMethods:    map[string]struct{}{"GET": {}, "HEAD": {}, "OPTIONS": {}},
		NotFound:       errNotFound,
	}
	ctx := context.Background()
	id := &Identity{ID: "u1"}

	res := RunCSRF(ctx, CSRFRequest{Method: "get", Path: "/logout", Identity: id, CSRFToken: "wrong"}, deps)
	assert.Equal(t, CSRFFailureNone, res.Failure)
	assert.False(t, res.Checked)

	res = RunCSRF(ctx, CSRFRequest{Method: "POST", Path: "/api/other", Identity: id}, deps)
	assert.False(t, res.Checked)

	res = RunCSRF(ctx, CSRFRequest{Method: "POST", Path: "/logout", Identity: id, SessionID: "sid"}, deps)
	assert.Equal(t, CSRFFailureMissing, res.Failure)

	res = RunCSRF(ctx, CSRFRequest{Method: "POST", Path: "/logout", SessionID: "sid", CSRFToken: "tok"}, deps)
	assert.Equal(t, CSRFFailureUnauthenticated, res.Failure)

	res = RunCSRF(ctx, CSRFRequest{Method: "POST", Path: "/logout", Identity: &Identity{ID: "u2"}, SessionID: "sid", CSRFToken: "tok"}, deps)
	assert.Equal(t, CSRFFailureInvalidSession, res.Failure)

	res = RunCSRF(ctx, CSRFRequest{Method: "POST", Path: "/logout", Identity: id, SessionID: "sid", CSRFToken: "nope"}, deps)
	assert.Equal(t, CSRFFailureMismatch, res.Failure)

	res = RunCSRF(ctx, CSRFRequest{Method: "POST", Path: "/logout", Identity: id, SessionID: "sid", CSRFToken: "tok"}, deps)
	assert.Equal(t, CSRFFailureNone, res.Failure)
	assert.True(t, res.Checked)

	store.loadErr = session.ErrCorruptRecord
	res = RunCSRF(ctx, CSRFRequest{Method: "POST", Path: "/logout", Identity: id, SessionID: "sid", CSRFToken: "tok"}, deps)
	assert.Equal(t, CSRFFailureCheckFailed, res.Failure)
}

func TestCSRFStoredTokenEmptyNeverMatches(t *testing.T) {
	store := newFakeSessions()
	store.records[session.CSRFKey("u1", "sid")] = &session.Record{}
	deps := CSRFDeps{Sessions: store, ProtectedPaths: map[string]struct{}{"/logout": {}}, NotFound: errNotFound}

	res := RunCSRF(context.Background(), CSRFRequest{Method: "POST", Path: "/logout", Identity: &Identity{ID: "u1"}, SessionID: "sid", CSRFToken: "x"}, deps)
	assert.Equal(t, CSRFFailureMismatch, res.Failure)
}
