// package models defines the data model for the storyx viewer
package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations include [Author] and [MediaItem].
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Snapshot entities are immutable, so there is no Update, and Create returns the stored copy.
type Repository[T Model] interface {
	Create(model T) (T, error)                 // Create inserts a new model, generating an ID when it has none
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}
