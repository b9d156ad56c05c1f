package flows

// Deps groups flow dependency sets. Root engine builds this once and delegates
// each pipeline stage to the matching flow implementation.
type Deps struct {
	Authenticate AuthenticateDeps
	CSRF         CSRFDeps
	Gate         GateDeps
	Maintenance  MaintenanceDeps
	Plugin       PluginDeps
}
