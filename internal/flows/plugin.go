package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/permission"
)

// PluginFailureKind classifies plugin key gate failures for root-level mapping.
type PluginFailureKind int

const (
	PluginFailureNone PluginFailureKind = iota
	PluginFailureKeyRequired
	PluginFailureInvalidKey
	PluginFailureNotPlugin
	PluginFailurePermission
)

// PluginResult is the outcome of the plugin key gate.
type PluginResult struct {
	Failure    PluginFailureKind
	Err        error
	Key        *permission.APIKey
	Capability string
}

// PluginDeps captures plugin key gate dependencies.
type PluginDeps struct {
	Keys         APIKeyLookup
	Capabilities permission.CapabilityMap
}

// RunPluginKey admits plugin-typed API keys holding the capability that owns path.
func RunPluginKey(ctx context.Context, apiKey, path string, deps PluginDeps) PluginResult {
	if apiKey == "" {
		return PluginResult{Failure: PluginFailureKeyRequired}
	}
	if deps.Keys == nil {
		return PluginResult{Failure: PluginFailureInvalidKey, Err: errors.New("api key lookup not configured")}
	}

	record, err := deps.Keys.FindAPIKeyByKey(ctx, apiKey)
	if err != nil {
		return PluginResult{Failure: PluginFailureInvalidKey, Err: err}
	}
	if record == nil {
		return PluginResult{Failure: PluginFailureInvalidKey}
	}
	if !record.IsPlugin() {
		return PluginResult{Failure: PluginFailureNotPlugin, Key: record}
	}

	capability, owned := deps.Capabilities.Lookup(path)
	if !owned {
		return PluginResult{Key: record}
	}
	perms, err := record.PermissionList()
	if err != nil {
		return PluginResult{Failure: PluginFailurePermission, Err: err, Key: record, Capability: capability}
	}
	if !permission.Contains(perms, capability) {
		return PluginResult{Failure: PluginFailurePermission, Key: record, Capability: capability}
	}
	return PluginResult{Key: record, Capability: capability}
}
