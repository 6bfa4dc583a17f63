package container

import (
	"github.com/sistemas-ti/archivador/cmd/archivador/repository"
	"github.com/sistemas-ti/archivador/cmd/archivador/service"
	"github.com/sistemas-ti/archivador/common/bootstrap"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components

	// Repositories
	ArchivoRepo *repository.ArchivoRepository

	// Services
	ArchivoService *service.ArchivoService
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	// Initialize repositories
	archivoRepo := repository.NewArchivoRepository(components.DB)

	// Initialize services
	archivoService := service.NewArchivoService(
		archivoRepo,
		components.Blobs,
		components.Config.Storage,
		components.Logger,
	)

	return &Container{
		Components:     components,
		ArchivoRepo:    archivoRepo,
		ArchivoService: archivoService,
	}, nil
}
