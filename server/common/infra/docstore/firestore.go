package docstore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
)

// NewFirestore opens a Firestore client. Credentials come from the ambient
// Google application default credentials, or the emulator when
// FIRESTORE_EMULATOR_HOST is set.
func NewFirestore(ctx context.Context, projectID string) (*firestore.Client, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}
