package identity

import (
	"github.com/workhive/workhive/internal/identity/repository"
	"github.com/workhive/workhive/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
