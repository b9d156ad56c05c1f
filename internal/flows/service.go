package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.VerifyAccess != nil && s.deps.Gate.Roles != nil
}

func (s Service) Authenticate(ctx context.Context, req AuthRequest) AuthResult {
	return RunAuthenticate(ctx, req, s.deps.Authenticate)
}

func (s Service) Refresh(ctx context.Context, sessionID string) RefreshResult {
	return RunRefresh(ctx, sessionID, s.deps.Authenticate.Refresh)
}

func (s Service) CSRF(ctx context.Context, req CSRFRequest) CSRFResult {
	return RunCSRF(ctx, req, s.deps.CSRF)
}

func (s Service) RolesGate(ctx context.Context, req GateRequest) GateResult {
	return RunRolesGate(ctx, req, s.deps.Gate)
}

func (s Service) Maintenance(ctx context.Context, identity *Identity) MaintenanceResult {
	return RunMaintenance(ctx, identity, s.deps.Maintenance)
}

func (s Service) PluginKey(ctx context.Context, apiKey, path string) PluginResult {
	return RunPluginKey(ctx, apiKey, path, s.deps.Plugin)
}
