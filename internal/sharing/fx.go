package sharing

import (
	"github.com/workhive/workhive/internal/sharing/repository"
	"github.com/workhive/workhive/internal/sharing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sharing.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
