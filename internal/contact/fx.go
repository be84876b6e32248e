package contact

import (
	"github.com/workhive/workhive/internal/contact/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contact.service",
	fx.Provide(service.NewService),
)
