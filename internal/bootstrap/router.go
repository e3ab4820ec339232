package bootstrap

import (
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/pzse-platform/iebc-backend/internal/api/http"
	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/db"
	projecthttp "github.com/pzse-platform/iebc-backend/internal/projects/http"
	"github.com/pzse-platform/iebc-backend/internal/projects/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *db.DB
	Redis       *redis.Client
	AuthClient  *fbauth.Client
	Projects    *service.Service
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB.Pool, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(auth.Middleware(dep.AuthClient))

	projectsGroup := api.Group("/projects")
	projecthttp.New(dep.Projects).Register(projectsGroup)

	return r
}
