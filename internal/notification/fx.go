package notification

import (
	"github.com/workhive/workhive/internal/notification/dispatch"
	"github.com/workhive/workhive/internal/notification/domain"
	"github.com/workhive/workhive/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(service.NewService),
	fx.Provide(dispatch.NewDispatcher),
	fx.Provide(func(d *dispatch.Dispatcher) domain.Dispatcher { return d }),
)
