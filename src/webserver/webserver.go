package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/studyhive/steward/src/config"
	"github.com/studyhive/steward/src/suggestions"
	"gorm.io/gorm"
)

// New builds the health/status surface: liveness plus read-only snapshots of
// the suggestion store, with staff-only routes behind JWT.
func New(cfg config.Config, engine *suggestions.Engine, db *gorm.DB) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	g.Use(cors.Default())
	attachRoutes(g, cfg, engine, db)
	return g
}
