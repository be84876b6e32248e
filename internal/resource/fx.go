package resource

import "go.uber.org/fx"

var Module = fx.Module("resource.resolver",
	fx.Provide(NewResolver),
)
