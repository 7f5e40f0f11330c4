package cards

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
	assets  string
}

// NewFeature creates the catalog feature. Images under the store root are
// served statically below /assets.
func NewFeature(svc *Service) *Feature {
	return &Feature{service: svc, handler: NewHandler(svc), assets: svc.store.Root()}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "cards"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	app.Static("/assets", f.assets, fiber.Static{Browse: false})
	return nil
}
