package bootstrap

import (
	"context"

	"cloud.google.com/go/firestore"
)

// InitFirestore falls back to the ambient project when PROJECTID is unset, so
// the emulator and Cloud Run both work without extra config.
func InitFirestore(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	return firestore.NewClient(ctx, projectID)
}
