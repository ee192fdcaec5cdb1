package address

import "go.uber.org/fx"

// Module provides the address repository to Fx.
var Module = fx.Provide(NewRepository)
