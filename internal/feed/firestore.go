package feed

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirestoreSource reads feed entries from one Firestore collection.
type FirestoreSource struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSource initialises the Firebase Admin SDK for projectID. With
// an empty credFile the SDK falls back to application default credentials.
func NewFirestoreSource(ctx context.Context, projectID, credFile, collection string) (*FirestoreSource, error) {
	var opts []option.ClientOption
	if credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}

	logger.Info().Str("project", projectID).Str("collection", collection).Msg("Firestore feed enabled")
	return &FirestoreSource{client: client, collection: collection}, nil
}

func (s *FirestoreSource) Query(ctx context.Context, q Query) ([]Entry, error) {
	query := s.client.Collection(s.collection).Query
	for _, c := range q.Conditions {
		query = query.Where(c.Path, "==", c.Value)
	}
	query = query.OrderBy("createdAt", firestore.Desc).Limit(q.Limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	entries := []Entry{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var e Entry
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("decode feed document %s: %w", doc.Ref.ID, err)
		}
		e.ID = doc.Ref.ID
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *FirestoreSource) Close() error {
	return s.client.Close()
}
