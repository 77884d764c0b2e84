// Package qdrant exports creature feature vectors and embedding coordinates to a Qdrant
// vector database over gRPC and runs nearest-neighbour searches against them.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// upsertBatchSize bounds the number of points sent per Upsert call.
const upsertBatchSize = 256

// Options locates the Qdrant instance and collection.
type Options struct {
	Host       string
	Port       int
	Collection string
	APIKey     string
	UseTLS     bool
}

// Client wraps gRPC connections to a Qdrant vector database instance.
type Client struct {
	connection        *grpc.ClientConn
	pointsClient      pb.PointsClient
	collectionsClient pb.CollectionsClient
	collectionName    string
	vectorSize        uint64
}

// Point is one creature as stored in the collection. The point id is the pokedex
// number; the vector is its normalized feature row.
type Point struct {
	ID     int
	Name   string
	Type1  string
	Type2  string
	X, Y   float64
	Vector []float32
}

// Match is one search result.
type Match struct {
	ID    int
	Name  string
	Score float32
}

// NewClient connects to Qdrant and ensures the collection exists, creating it with
// cosine distance and vectorSize dimensions if necessary.
func NewClient(ctx context.Context, opts Options, vectorSize uint64) (*Client, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if opts.UseTLS {
		dialOpts[0] = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	if opts.APIKey != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(apiKeyInterceptor(opts.APIKey)))
	}

	address := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	connection, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	client := &Client{
		connection:        connection,
		pointsClient:      pb.NewPointsClient(connection),
		collectionsClient: pb.NewCollectionsClient(connection),
		collectionName:    opts.Collection,
		vectorSize:        vectorSize,
	}

	if err := client.ensureCollectionExists(ctx); err != nil {
		connection.Close()
		return nil, err
	}

	return client, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// ensureCollectionExists creates the collection when Qdrant does not know it yet.
func (client *Client) ensureCollectionExists(ctx context.Context) error {
	exists, err := client.collectionsClient.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: client.collectionName,
	})
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = client.collectionsClient.Create(ctx, &pb.CreateCollection{
		CollectionName: client.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     client.vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	return nil
}

func pointID(id int) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func doubleValue(v float64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: v}}
}

// toPointStruct converts a Point into its wire form.
func toPointStruct(point Point) *pb.PointStruct {
	return &pb.PointStruct{
		Id: pointID(point.ID),
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: point.Vector},
			},
		},
		Payload: map[string]*pb.Value{
			"name":  stringValue(point.Name),
			"type1": stringValue(point.Type1),
			"type2": stringValue(point.Type2),
			"x":     doubleValue(point.X),
			"y":     doubleValue(point.Y),
		},
	}
}

// fromPayload fills the payload fields of a Point.
func fromPayload(id *pb.PointId, payload map[string]*pb.Value) Point {
	point := Point{ID: int(id.GetNum())}
	if v, ok := payload["name"]; ok {
		point.Name = v.GetStringValue()
	}
	if v, ok := payload["type1"]; ok {
		point.Type1 = v.GetStringValue()
	}
	if v, ok := payload["type2"]; ok {
		point.Type2 = v.GetStringValue()
	}
	if v, ok := payload["x"]; ok {
		point.X = v.GetDoubleValue()
	}
	if v, ok := payload["y"]; ok {
		point.Y = v.GetDoubleValue()
	}
	return point
}

// Upsert inserts or updates points in batches and waits for each batch to be applied.
func (client *Client) Upsert(ctx context.Context, points []Point) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		batch := make([]*pb.PointStruct, 0, end-start)
		for _, point := range points[start:end] {
			if uint64(len(point.Vector)) != client.vectorSize {
				return fmt.Errorf("point %d has %d dimensions, collection expects %d", point.ID, len(point.Vector), client.vectorSize)
			}
			batch = append(batch, toPointStruct(point))
		}

		_, err := client.pointsClient.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: client.collectionName,
			Wait:           pb.PtrOf(true),
			Points:         batch,
		})
		if err != nil {
			return fmt.Errorf("upsert points %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// GetAll scrolls through the collection and returns up to 10000 points with vectors.
func (client *Client) GetAll(ctx context.Context) ([]Point, error) {
	scrollResponse, err := client.pointsClient.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: client.collectionName,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
		Limit:          pb.PtrOf(uint32(10000)),
	})
	if err != nil {
		return nil, fmt.Errorf("scroll points: %w", err)
	}

	points := make([]Point, 0, len(scrollResponse.Result))
	for _, retrieved := range scrollResponse.Result {
		point := fromPayload(retrieved.Id, retrieved.Payload)
		if vectorData := retrieved.Vectors.GetVector(); vectorData != nil {
			point.Vector = vectorData.Data
		}
		points = append(points, point)
	}
	return points, nil
}

// Search returns the limit stored creatures closest to vector by cosine similarity.
func (client *Client) Search(ctx context.Context, vector []float32, limit uint64) ([]Match, error) {
	response, err := client.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: client.collectionName,
		Vector:         vector,
		Limit:          limit,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	matches := make([]Match, 0, len(response.Result))
	for _, scored := range response.Result {
		point := fromPayload(scored.Id, scored.Payload)
		matches = append(matches, Match{ID: point.ID, Name: point.Name, Score: scored.Score})
	}
	return matches, nil
}

// Delete removes points by pokedex number.
func (client *Client) Delete(ctx context.Context, ids ...int) error {
	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	pointSelector := &pb.PointsSelector{
		PointsSelectorOneOf: &pb.PointsSelector_Points{
			Points: &pb.PointsIdsList{Ids: pointIDs},
		},
	}

	_, err := client.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: client.collectionName,
		Points:         pointSelector,
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Close terminates the gRPC connection to the Qdrant server.
func (client *Client) Close() error {
	return client.connection.Close()
}
