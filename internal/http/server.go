package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mannyc2/watchify-app-sub000/internal/platform/envutil"
)

type Server struct {
	Engine *gin.Engine
}

func NewServer(cfg RouterConfig) *Server {
	if envutil.String("GIN_MODE", "") == "" && envutil.String("LOG_MODE", "") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{Engine: NewRouter(cfg)}
}

func (s *Server) Run(address string) error {
	return s.Engine.Run(address)
}
