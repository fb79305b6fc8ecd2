// Package biz contains business logic layer implementations.
// This layer holds the credential pool, the resilient invoker and the
// status observers built on top of them.
package biz

import (
	"VaultLane/internal/data"
	"VaultLane/pkg/groq"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCredentialPoolFromConf,
	NewInvoker,
	NewVaultMetrics,
	NewStatusMirror,
	NewVaultMonitor,
	// Import data layer providers
	data.NewVaultStateRepo,
	data.NewInvocationLogger,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(VaultStateRepo), new(*data.VaultStateRepo)),
	wire.Bind(new(InvocationAuditor), new(*data.InvocationLogger)),
	wire.Bind(new(ChatCompleter), new(*groq.Client)),
)
