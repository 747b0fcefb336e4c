package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"invite-tracker-backend/internal/logger"
)

// Connect initialises a Firebase app and returns its Firestore client.
// An empty credentialsFile falls back to Application Default Credentials.
func Connect(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	logger.ExternalServiceCall("firebase", "new_app", "project_id", projectID)
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	logger.ExternalServiceResult("firebase", "new_app", err, "project_id", projectID)
	if err != nil {
		return nil, fmt.Errorf("firebase app init failed (project=%s): %w", projectID, err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	logger.Info("Firestore connected", "project_id", projectID)
	return client, nil
}
