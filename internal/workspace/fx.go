package workspace

import (
	"github.com/workhive/workhive/internal/workspace/repository"
	"github.com/workhive/workhive/internal/workspace/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workspace.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
