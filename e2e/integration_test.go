//go:build e2e

// Package e2e contains end-to-end tests that run the engine against a
// real DynamoDB table. Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/strata/entity"
	"github.com/jacentio/strata/hook"
	"github.com/jacentio/strata/query"
	"github.com/jacentio/strata/schema"
	"github.com/jacentio/strata/storage"
)

const (
	awsProfile  = "jacent-alpha-cp"
	tablePrefix = "strata-e2e-test"
)

var (
	tableName string
	ddbClient *dynamodb.Client
	engine    *entity.Engine
)

func userConfig() *entity.EntityConfig {
	hooks := hook.NewPipeline(nil)
	hooks.Register(hook.OnConflict, hook.Entry{
		ID: "reject-duplicates",
		Fn: func(context.Context, *hook.Context) (*hook.Result, error) {
			return &hook.Result{Action: "abort", Message: "id already exists"}, nil
		},
	})
	return &entity.EntityConfig{
		Name: "user",
		Schema: schema.Schema{
			"id":    {Type: schema.TypeString},
			"name":  {Type: schema.TypeString, Required: true},
			"email": {Type: schema.TypeString, Required: true, Format: "email"},
			"age":   {Type: schema.TypeInteger},
		},
		Storage: storage.Descriptor{
			Driver:   storage.KindObjectStore,
			KeyField: "id",
		},
		Hooks: hooks,
	}
}

func TestMain(m *testing.M) {
	tableName = fmt.Sprintf("%s-%s", tablePrefix, uuid.New().String()[:8])
	fmt.Printf("Test table: %s\n", tableName)

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(awsProfile),
	)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = dynamodb.NewFromConfig(cfg)

	if err := createTable(ctx); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	registry := entity.NewRegistry()
	if err := registry.Register(userConfig()); err != nil {
		fmt.Printf("Failed to register config: %v\n", err)
		os.Exit(1)
	}
	dispatcher := storage.NewDispatcher(
		storage.WithDriver(storage.NewObjectStoreDriver(ddbClient, tableName)),
	)
	engine = entity.New(registry, dispatcher, entity.WithSource("e2e"))

	code := m.Run()

	if err := deleteTable(ctx); err != nil {
		fmt.Printf("Failed to delete table: %v\n", err)
	}
	os.Exit(code)
}

func createTable(ctx context.Context) error {
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", tableName, err)
	}
	return nil
}

func deleteTable(ctx context.Context) error {
	_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	return err
}

func TestCreateAndRead(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	resp, err := engine.Create(ctx, map[string]any{
		"targetName": "user",
		"payload": map[string]any{
			"id":    id,
			"name":  "Ada",
			"email": "ada@example.com",
			"age":   36,
		},
		"actor": "e2e",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success response")
	}

	got, err := engine.Read(ctx, "user", id)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got["name"] != "Ada" {
		t.Errorf("expected name Ada, got %v", got["name"])
	}
	meta, ok := got["meta"].(map[string]any)
	if !ok {
		t.Fatal("expected meta object on stored record")
	}
	if meta["createdBy"] != "e2e" {
		t.Errorf("expected createdBy e2e, got %v", meta["createdBy"])
	}
}

func TestConflictAborts(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	create := func(name string) error {
		_, err := engine.Create(ctx, map[string]any{
			"targetName": "user",
			"payload":    map[string]any{"id": id, "name": name, "email": name + "@example.com"},
		})
		return err
	}

	if err := create("first"); err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	err := create("second")
	var cerr *entity.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	if _, err := engine.Create(ctx, map[string]any{
		"targetName": "user",
		"payload":    map[string]any{"id": id, "name": "Ada", "email": "ada@example.com"},
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := engine.Update(ctx, map[string]any{
		"targetName": "user",
		"payload":    map[string]any{"id": id, "name": "Ada Lovelace"},
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := engine.Read(ctx, "user", id)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got["name"] != "Ada Lovelace" {
		t.Errorf("expected updated name, got %v", got["name"])
	}

	removed, err := engine.Delete(ctx, "user", id)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Error("expected delete to remove the record")
	}

	removed, err = engine.Delete(ctx, "user", id)
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if removed {
		t.Error("expected second delete to be a no-op")
	}
}

func TestQueryOverObjectStore(t *testing.T) {
	ctx := context.Background()
	marker := uuid.New().String()[:8]

	for i, age := range []int{30, 40, 50} {
		if _, err := engine.Create(ctx, map[string]any{
			"targetName": "user",
			"payload": map[string]any{
				"id":    fmt.Sprintf("%s-%d", marker, i),
				"name":  marker,
				"email": fmt.Sprintf("q%d@example.com", i),
				"age":   age,
			},
		}); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	b, err := engine.Query("user")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	result, err := b.
		Where("name", query.OpEq, marker).
		Where("age", query.OpGte, 40).
		Sort("age", query.Desc).
		Execute(ctx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
}
