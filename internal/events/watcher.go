package events

import (
	"context"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Watcher observes MongoDB change streams for the registry's collections and
// dispatches insert/update events to the registered reactors. It is the thin
// adapter between the store's trigger boundary and the reactor registry.
type Watcher struct {
	db       *mongo.Database
	registry *Registry
}

// NewWatcher creates a Watcher over db dispatching into registry.
func NewWatcher(db *mongo.Database, registry *Registry) *Watcher {
	return &Watcher{db: db, registry: registry}
}

// changeEvent is the subset of the change-stream document we care about.
type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
	UpdateDesc    struct {
		UpdatedFields bson.Raw `bson:"updatedFields"`
	} `bson:"updateDescription"`
}

// Run watches every registered collection until ctx is cancelled. Stream
// errors are logged and the stream reopened after a short delay; change
// streams require a replica-set deployment.
func (w *Watcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, collection := range w.registry.Collections() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			w.watchCollection(ctx, name)
		}(collection)
	}
	wg.Wait()
}

func (w *Watcher) watchCollection(ctx context.Context, collection string) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update"}}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := w.db.Collection(collection).Watch(ctx, pipeline, opts)
		if err != nil {
			log.Printf("Failed to open change stream on %s: %v (retrying)", collection, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		log.Printf("Watching collection %s for changes", collection)
		w.consume(ctx, collection, stream)
		_ = stream.Close(context.Background())
	}
}

func (w *Watcher) consume(ctx context.Context, collection string, stream *mongo.ChangeStream) {
	for stream.Next(ctx) {
		var ce changeEvent
		if err := stream.Decode(&ce); err != nil {
			log.Printf("Failed to decode change event on %s: %v", collection, err)
			continue
		}
		w.registry.Dispatch(ctx, Event{
			Collection:    collection,
			Type:          EventType(ce.OperationType),
			Document:      ce.FullDocument,
			UpdatedFields: ce.UpdateDesc.UpdatedFields,
		})
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Change stream on %s failed: %v (reopening)", collection, err)
	}
}
