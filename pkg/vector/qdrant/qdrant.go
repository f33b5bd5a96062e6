// Package qdrant provides a Qdrant vector database driver implementation.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for engram embeddings.
	DefaultCollectionName = "engram"

	// DefaultPort is Qdrant's default gRPC port.
	DefaultPort = 6334
)

// idField is the payload field holding the caller's document id. Qdrant
// point ids must be UUIDs or integers, so the string id is mapped to a
// deterministic UUID and kept in the payload for readback.
const idField = "_id"

// QdrantDriver implements vector.VectorDriver against a Qdrant server.
type QdrantDriver struct {
	client         *qdrantclient.Client
	collectionName string
	dimensions     uint
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant server host (e.g., "localhost").
	Host string

	// Port is the Qdrant gRPC port. Defaults to DefaultPort if zero.
	Port int

	// CollectionName is the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding dimensionality used when the collection
	// has to be created.
	Dimensions uint
}

// NewQdrantDriver connects to Qdrant and ensures the collection exists.
func NewQdrantDriver(c Config, logger *zap.Logger) (*QdrantDriver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qdrantclient.NewClient(&qdrantclient.Config{
		Host: c.Host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	d := &QdrantDriver{
		client:         client,
		collectionName: collectionName,
		dimensions:     c.Dimensions,
		logger:         logger,
	}

	if err := d.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collectionName),
		zap.Uint("dimensions", c.Dimensions),
	)

	return d, nil
}

// ensureCollection creates the collection with cosine distance when missing.
func (d *QdrantDriver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collectionName)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrantclient.CreateCollection{
		CollectionName: d.collectionName,
		VectorsConfig: qdrantclient.NewVectorsConfig(&qdrantclient.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qdrantclient.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %q: %v", vector.ErrConnection, d.collectionName, err)
	}
	return nil
}

// pointID maps an arbitrary document id to a stable Qdrant UUID point id.
func pointID(docID string) *qdrantclient.PointId {
	return qdrantclient.NewID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID)).String())
}

// Add upserts documents. The same document id always maps to the same
// point id, so re-adding replaces the stored point.
func (d *QdrantDriver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrantclient.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != int(d.dimensions) {
			return fmt.Errorf("%w: doc %s has %d dimensions, store expects %d",
				vector.ErrDimensions, doc.ID, len(doc.Embedding), d.dimensions)
		}

		payload := make(map[string]any, len(doc.Payload)+1)
		for k, v := range doc.Payload {
			payload[k] = v
		}
		payload[idField] = doc.ID

		points = append(points, &qdrantclient.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrantclient.NewVectors(doc.Embedding...),
			Payload: qdrantclient.NewValueMap(payload),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: d.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting points: %v", vector.ErrConnection, err)
	}

	d.logger.Debug("added documents to qdrant",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *QdrantDriver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qdrantclient.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrantclient.NewQuery(embedding...),
		Limit:          qdrantclient.PtrOf(uint64(topK)),
		WithPayload:    qdrantclient.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %v", vector.ErrConnection, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, point := range points {
		doc := documentFromPayload(point.GetPayload())
		results = append(results, vector.QueryResult{
			Document: doc,
			Score:    point.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Get retrieves documents by their IDs. Unknown ids are skipped.
func (d *QdrantDriver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrantclient.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}

	points, err := d.client.Get(ctx, &qdrantclient.GetPoints{
		CollectionName: d.collectionName,
		Ids:            pointIDs,
		WithPayload:    qdrantclient.NewWithPayload(true),
		WithVectors:    qdrantclient.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting points: %v", vector.ErrConnection, err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, point := range points {
		doc := documentFromPayload(point.GetPayload())
		if vectors := point.GetVectors().GetVector(); vectors != nil {
			doc.Embedding = vectors.GetData()
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *QdrantDriver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrantclient.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}

	_, err := d.client.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: d.collectionName,
		Points:         qdrantclient.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting points: %v", vector.ErrConnection, err)
	}

	d.logger.Debug("deleted documents from qdrant",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Clear drops the collection and recreates it empty.
func (d *QdrantDriver) Clear(ctx context.Context) error {
	if err := d.client.DeleteCollection(ctx, d.collectionName); err != nil {
		return fmt.Errorf("%w: dropping collection %q: %v", vector.ErrConnection, d.collectionName, err)
	}
	return d.ensureCollection(ctx)
}

// Stats reports the collection's point count and configured dimensions.
func (d *QdrantDriver) Stats(ctx context.Context) (vector.Stats, error) {
	count, err := d.client.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: d.collectionName,
	})
	if err != nil {
		return vector.Stats{}, fmt.Errorf("%w: counting points: %v", vector.ErrConnection, err)
	}

	return vector.Stats{
		Count:      int64(count),
		Dimensions: d.dimensions,
	}, nil
}

// Close releases the gRPC connection.
func (d *QdrantDriver) Close() error {
	return d.client.Close()
}

// documentFromPayload rebuilds a vector.Document from a Qdrant payload,
// extracting the stored document id and converting values back to plain
// Go types.
func documentFromPayload(payload map[string]*qdrantclient.Value) vector.Document {
	doc := vector.Document{}
	if len(payload) == 0 {
		return doc
	}

	doc.Payload = make(map[string]any, len(payload))
	for key, value := range payload {
		if key == idField {
			doc.ID = value.GetStringValue()
			continue
		}
		doc.Payload[key] = valueToAny(value)
	}
	return doc
}

// valueToAny converts a Qdrant payload value into a plain Go value.
func valueToAny(v *qdrantclient.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrantclient.Value_StringValue:
		return kind.StringValue
	case *qdrantclient.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrantclient.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrantclient.Value_BoolValue:
		return kind.BoolValue
	case *qdrantclient.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, 0, len(values))
		for _, item := range values {
			list = append(list, valueToAny(item))
		}
		return list
	case *qdrantclient.Value_StructValue:
		fields := kind.StructValue.GetFields()
		nested := make(map[string]any, len(fields))
		for key, item := range fields {
			nested[key] = valueToAny(item)
		}
		return nested
	default:
		return nil
	}
}

var _ vector.VectorDriver = (*QdrantDriver)(nil)
