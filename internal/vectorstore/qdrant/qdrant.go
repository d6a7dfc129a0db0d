// Package qdrant implements the vector index on Qdrant over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"lazaro-backend/internal/models"
	"lazaro-backend/internal/vectorstore"
)

// Store talks to a Qdrant server through its low-level gRPC clients.
type Store struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
}

var _ vectorstore.Index = (*Store)(nil)

// New connects to a Qdrant gRPC endpoint, e.g. "localhost:6334".
func New(addr string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, &models.VectorStoreError{Op: "connect", Err: err}
	}
	return &Store{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
	}, nil
}

func (s *Store) EnsureCollection(ctx context.Context, conversationID uuid.UUID, dimension int) error {
	name := vectorstore.CollectionName(conversationID)

	list, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return &models.VectorStoreError{Op: "ensure-collection", Err: err}
	}
	for _, col := range list.GetCollections() {
		if col.GetName() == name {
			return nil
		}
	}

	log.Printf("[Qdrant] Creating collection %s (dim=%d)", name, dimension)
	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		// A concurrent upload for the same conversation may have won the race.
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return &models.VectorStoreError{Op: "ensure-collection", Err: err}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, conversationID uuid.UUID, points []vectorstore.ChunkPoint) error {
	if len(points) == 0 {
		return nil
	}
	name := vectorstore.CollectionName(conversationID)

	qpoints := make([]*qdrantclient.PointStruct, 0, len(points))
	for _, p := range points {
		qpoints = append(qpoints, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: p.ID.String()},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: p.Vector},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"text":        {Kind: &qdrantclient.Value_StringValue{StringValue: p.Payload.Text}},
				"document_id": {Kind: &qdrantclient.Value_StringValue{StringValue: p.Payload.DocumentID.String()}},
				"chunk_index": {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(p.Payload.ChunkIndex)}},
				"source_file": {Kind: &qdrantclient.Value_StringValue{StringValue: p.Payload.SourceFile}},
			},
		})
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: name,
		Points:         qpoints,
		Wait:           &wait,
	})
	if err != nil {
		return &models.VectorStoreError{Op: "upsert", Err: err}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, conversationID uuid.UUID, vector []float32, limit int) ([]vectorstore.SearchResult, error) {
	name := vectorstore.CollectionName(conversationID)

	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"text", "document_id", "chunk_index", "source_file"},
				},
			},
		},
	})
	if err != nil {
		// No collection means no documents were indexed yet; that is an
		// empty retrieval, not a failure.
		if collectionMissing(err) {
			return nil, nil
		}
		return nil, &models.VectorStoreError{Op: "search", Err: err}
	}

	results := make([]vectorstore.SearchResult, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		docID, err := uuid.Parse(payload["document_id"].GetStringValue())
		if err != nil {
			return nil, &models.VectorStoreError{Op: "search", Err: fmt.Errorf("malformed document_id in payload: %w", err)}
		}
		results = append(results, vectorstore.SearchResult{
			Score: point.GetScore(),
			Payload: vectorstore.ChunkPayload{
				Text:       payload["text"].GetStringValue(),
				DocumentID: docID,
				ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
				SourceFile: payload["source_file"].GetStringValue(),
			},
		})
	}
	return results, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, conversationID, documentID uuid.UUID) error {
	name := vectorstore.CollectionName(conversationID)

	wait := true
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: name,
		Wait:           &wait,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{
				Filter: &qdrantclient.Filter{
					Must: []*qdrantclient.Condition{
						{
							ConditionOneOf: &qdrantclient.Condition_Field{
								Field: &qdrantclient.FieldCondition{
									Key: "document_id",
									Match: &qdrantclient.Match{
										MatchValue: &qdrantclient.Match_Keyword{Keyword: documentID.String()},
									},
								},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		if collectionMissing(err) {
			return nil
		}
		return &models.VectorStoreError{Op: "delete", Err: err}
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, conversationID uuid.UUID) error {
	name := vectorstore.CollectionName(conversationID)
	_, err := s.collections.Delete(ctx, &qdrantclient.DeleteCollection{CollectionName: name})
	if err != nil && !collectionMissing(err) {
		return &models.VectorStoreError{Op: "delete", Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func collectionMissing(err error) bool {
	if status.Code(err) == codes.NotFound {
		return true
	}
	// Older Qdrant versions report a missing collection as InvalidArgument.
	return strings.Contains(err.Error(), "doesn't exist") || strings.Contains(err.Error(), "not found")
}
