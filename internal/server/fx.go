package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(engine *gin.Engine, s *Server) {
		s.RegisterRoutes(engine)
	}),
	fx.Invoke(RunHTTP),
)
