package board

import (
	"github.com/workhive/workhive/internal/board/service"
	"go.uber.org/fx"
)

var Module = fx.Module("board.service",
	fx.Provide(service.NewService),
)
